// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Display DisplayConfig `mapstructure:"display"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DisplayConfig controls how devtree talks to the display server.
type DisplayConfig struct {
	// Backend selects the hierarchy service implementation: "auto",
	// "xinput" or "demo".
	Backend string `mapstructure:"backend"`

	// RemovalPolicy decides what happens to a removed master's slaves:
	// "reattach" hands them to the core pointer/keyboard pair, "float"
	// detaches them.
	RemovalPolicy string `mapstructure:"removal_policy"`
}

// UIConfig contains interactive-session settings.
type UIConfig struct {
	// RefreshInterval is the periodic re-query cadence in seconds.
	// Zero disables the timer; the tree still refreshes after every
	// mutation.
	RefreshInterval int `mapstructure:"refresh_interval"`

	// ConfirmQuit asks before quitting with staged edits.
	ConfirmQuit bool `mapstructure:"confirm_quit"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Display: DisplayConfig{
			Backend:       "auto",
			RemovalPolicy: "reattach",
		},
		UI: UIConfig{
			RefreshInterval: 2,
			ConfirmQuit:     true,
		},
		Logging: LoggingConfig{
			LogLevel: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("devtree")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "devtree"))
		}
		viper.AddConfigPath("/etc/devtree")
		viper.AddConfigPath(".")
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("display.backend", DefaultConfig.Display.Backend)
	viper.SetDefault("display.removal_policy", DefaultConfig.Display.RemovalPolicy)
	viper.SetDefault("ui.refresh_interval", DefaultConfig.UI.RefreshInterval)
	viper.SetDefault("ui.confirm_quit", DefaultConfig.UI.ConfirmQuit)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/devtree/devtree.toml"
	}

	return filepath.Join(home, ".config", "devtree", "devtree.toml")
}
