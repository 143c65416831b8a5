// Package cmd provides the command-line interface for Composer with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. COMPOSER_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (COMPOSER_SERVER_PORT, etc.)
//	4. Configuration files (.composer.yml) - lowest priority
//
// Environment Variables:
//
//	COMPOSER_CONFIG_FILE: Path to custom configuration file
//	COMPOSER_SERVER_PORT: Override server port
//	COMPOSER_SERVER_HOST: Override server host
//	COMPOSER_BLOCKS_HOT_RELOAD: Enable/disable definition hot reload
//	And more following the COMPOSER_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "composer",
	Short: "A block-based page composition engine",
	Long: `Composer is a block-based page composition engine that serves a visual
editor for assembling pages out of typed content blocks and reusable patterns.

Key Features:
  • Block definitions loaded from YAML with hot reload
  • Live preview in an isolated frame, synced over WebSocket
  • Schema-driven property forms with debounced propagation
  • Reusable pattern resolution with caching
  • Draft persistence against a backend content API

Quick Start:
  composer serve                  Start the editor server
  composer serve --draft <id>     Edit an existing page draft
  composer version                Show version information`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyFlagEnvOverrides(cmd.Flags())
	},
}

// applyFlagEnvOverrides fills flags the user did not set from matching
// COMPOSER_<FLAG> environment variables, so flags and env behave the same.
func applyFlagEnvOverrides(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		env := "COMPOSER_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if value, ok := os.LookupEnv(env); ok {
			_ = flags.Set(f.Name, value)
		}
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .composer.yml, can also use COMPOSER_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. COMPOSER_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .composer.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("COMPOSER_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".composer")
	}

	// Enable automatic environment variable binding with COMPOSER_ prefix
	// Examples: COMPOSER_SERVER_PORT, COMPOSER_PATTERNS_STORE_URL
	viper.SetEnvPrefix("COMPOSER")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing or malformed config files fall back to defaults without failing.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
