// Package config loads the debug console's own runtime settings (history
// file, prompt theme, fd-leak check interval) from a config file using
// Viper. This is distinct from internal/testconfig, which governs how a
// single test script is executed.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Terminal holds readline terminal settings.
type Terminal struct {
	HistoryFile     string `mapstructure:"history_file"`
	HistoryLimit    int    `mapstructure:"history_limit"`
	InterruptPrompt string `mapstructure:"interrupt_prompt"`
	EOFPrompt       string `mapstructure:"exit_message"`
	CheckInterval   uint   `mapstructure:"check_interval"`
}

// Prompt holds prompt coloring settings, consumed by internal/painter.
type Prompt struct {
	Theme               string `mapstructure:"theme"`
	PathColour          string `mapstructure:"path_colour"`
	PathColourBold      bool   `mapstructure:"path_colour_bold"`
	GitStatusColour     string `mapstructure:"git_status_colour"`
	GitStatusColourBold bool   `mapstructure:"git_status_colour_bold"`
}

// Config holds user-configurable settings for the debug console.
type Config struct {
	Terminal Terminal `mapstructure:"terminal"`
	Prompt   Prompt   `mapstructure:"prompt"`
}

// Load reads configuration from a file named "config" in the current
// directory using Viper and unmarshals it into a Config instance. If
// reading or unmarshaling fails an error is returned along with a partial
// Config (which may be zero-valued).
func Load() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	cfg := new(Config)
	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("shsh: boot: failed to load config: %w", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("shsh: boot: failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with sensible defaults. This is used
// as a fallback when loading the configuration file fails.
func Default() *Config {
	return &Config{
		Terminal: Terminal{
			HistoryFile:     filepath.Join(os.Getenv("HOME"), ".shsh_history"),
			HistoryLimit:    1000,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
			CheckInterval:   0,
		},
		Prompt: Prompt{
			Theme:      "shsh",
			PathColour: "cyan",
		},
	}
}
