package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfg = nil
	configPathOverride = ""
	t.Cleanup(func() {
		viper.Reset()
		cfg = nil
		configPathOverride = ""
	})
}

func TestInitDefaults(t *testing.T) {
	resetViper(t)
	// No config file anywhere in the search paths: defaults apply.
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, Init())
	c := Get()

	assert.Equal(t, "auto", c.Display.Backend)
	assert.Equal(t, "reattach", c.Display.RemovalPolicy)
	assert.Equal(t, 2, c.UI.RefreshInterval)
	assert.True(t, c.UI.ConfirmQuit)
	assert.Empty(t, c.Logging.LogLevel)
}

func TestInitReadsConfigFile(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "devtree.toml")
	content := `[display]
backend = "demo"
removal_policy = "float"

[ui]
refresh_interval = 10
confirm_quit = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	SetConfigPath(path)

	require.NoError(t, Init())
	c := Get()

	assert.Equal(t, "demo", c.Display.Backend)
	assert.Equal(t, "float", c.Display.RemovalPolicy)
	assert.Equal(t, 10, c.UI.RefreshInterval)
	assert.False(t, c.UI.ConfirmQuit)
}

func TestGetBeforeInitReturnsDefaults(t *testing.T) {
	resetViper(t)
	c := Get()
	assert.Equal(t, DefaultConfig.Display.Backend, c.Display.Backend)
}
