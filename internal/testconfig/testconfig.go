// Package testconfig holds the per-test execution settings from
// spec.md §3/§6 (Test Config) and loads file-provided defaults for the
// subset that is not test-path-derived, following the teacher's
// internal/config Viper pattern.
package testconfig

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/shtestcore/shtest/internal/substitution"
)

// Config is the External Interface's Test Config value from spec.md §3:
// the knobs a Script Composer / External Runner and the evaluator consult
// for one test.
type Config struct {
	Pipefail              bool              `mapstructure:"pipefail"`
	EchoAllCommands       bool              `mapstructure:"echo_all_commands"`
	UseValgrind           bool              `mapstructure:"use_valgrind"`
	ValgrindArgs          []string          `mapstructure:"valgrind_args"`
	MaxIndividualTestTime time.Duration     `mapstructure:"max_individual_test_time"`
	Environment           map[string]string `mapstructure:"environment"`

	// Substitutions and the platform flags are supplied programmatically
	// per test (they are derived from the test's own path and the host
	// it runs on), not read from the shared config file.
	Substitutions []substitution.Pair
	IsWindows     bool
	BashPath      string
}

// Default returns a Config with conservative defaults: pipefail on,
// no echoing, no valgrind, no timeout.
func Default() Config {
	return Config{
		Pipefail:     true,
		BashPath:     "/bin/bash",
		Environment:  map[string]string{},
		ValgrindArgs: []string{"valgrind", "-q", "--error-exitcode=1"},
	}
}

// Load reads path (YAML/TOML/JSON, auto-detected by Viper from its
// extension) and unmarshals it over a Default() Config. A missing or
// unreadable file is an error; Substitutions/IsWindows/BashPath are left
// untouched since the file never supplies them.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("testconfig: failed to load %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("testconfig: failed to unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
