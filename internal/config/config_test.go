package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, []string{"./blocks"}, cfg.Blocks.DefinitionPaths)
	assert.True(t, cfg.Blocks.HotReload)
	assert.Equal(t, 300*time.Millisecond, cfg.Blocks.ReloadDebounce)
	assert.Equal(t, 500*time.Millisecond, cfg.Editor.FormDebounce)
	assert.Equal(t, 5*time.Minute, cfg.Patterns.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Overrides(t *testing.T) {
	viper.Reset()
	viper.Set("server.port", 9000)
	viper.Set("server.host", "0.0.0.0")
	viper.Set("blocks.hot_reload", false)
	viper.Set("blocks.definition_paths", []string{"./defs"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.False(t, cfg.Blocks.HotReload)
	assert.Equal(t, []string{"./defs"}, cfg.Blocks.DefinitionPaths)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	viper.Reset()
	viper.Set("server.port", 70000)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestLoad_RejectsDangerousHost(t *testing.T) {
	viper.Reset()
	viper.Set("server.host", "localhost; rm -rf /")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dangerous character")
}

func TestLoad_RejectsPathTraversal(t *testing.T) {
	viper.Reset()
	viper.Set("blocks.definition_paths", []string{"../../etc"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traversal")
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("./blocks"))
	assert.NoError(t, validatePath("/srv/composer/blocks"))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath("blocks; whoami"))
	assert.Error(t, validatePath("../outside"))
}
