// Package config provides configuration management for the composition
// engine using Viper, loading from .composer.yml, environment variables
// with the COMPOSER_ prefix, and command-line flags.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Blocks      BlocksConfig      `yaml:"blocks"`
	Editor      EditorConfig      `yaml:"editor"`
	Patterns    PatternsConfig    `yaml:"patterns"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BlocksConfig struct {
	// DefinitionPaths are directories scanned for *.block.yaml files.
	DefinitionPaths []string `yaml:"definition_paths"`
	HotReload       bool     `yaml:"hot_reload"`
	// ReloadDebounce groups rapid definition-file saves into one reload.
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
}

type EditorConfig struct {
	// FormDebounce is the quiet period before form edits propagate to the
	// controller.
	FormDebounce time.Duration `yaml:"form_debounce"`
}

type PatternsConfig struct {
	StoreURL string        `yaml:"store_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
}

type PersistenceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Apply defaults for values not explicitly set
	if config.Server.Port == 0 {
		config.Server.Port = 8090
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if !viper.IsSet("blocks.definition_paths") && len(config.Blocks.DefinitionPaths) == 0 {
		config.Blocks.DefinitionPaths = []string{"./blocks"}
	}
	if viper.IsSet("blocks.definition_paths") && len(config.Blocks.DefinitionPaths) == 0 {
		paths := viper.GetStringSlice("blocks.definition_paths")
		if len(paths) > 0 {
			config.Blocks.DefinitionPaths = paths
		}
	}
	if !viper.IsSet("blocks.hot_reload") {
		config.Blocks.HotReload = true
	} else {
		config.Blocks.HotReload = viper.GetBool("blocks.hot_reload")
	}
	if config.Blocks.ReloadDebounce == 0 {
		config.Blocks.ReloadDebounce = 300 * time.Millisecond
	}
	if config.Editor.FormDebounce == 0 {
		config.Editor.FormDebounce = 500 * time.Millisecond
	}
	if config.Patterns.CacheTTL == 0 {
		config.Patterns.CacheTTL = 5 * time.Minute
	}
	if config.Patterns.Timeout == 0 {
		config.Patterns.Timeout = 10 * time.Second
	}
	if config.Persistence.Timeout == 0 {
		config.Persistence.Timeout = 15 * time.Second
	}
	if config.Log.Level == "" {
		config.Log.Level = viper.GetString("log-level")
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	for _, path := range config.Blocks.DefinitionPaths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("blocks config: invalid definition path '%s': %w", path, err)
		}
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
