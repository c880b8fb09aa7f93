package testconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shtestcore/shtest/internal/testconfig"
)

func TestDefaultHasPipefailOn(t *testing.T) {
	cfg := testconfig.Default()
	assert.True(t, cfg.Pipefail)
	assert.False(t, cfg.UseValgrind)
	assert.Equal(t, time.Duration(0), cfg.MaxIndividualTestTime)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	content := "pipefail: false\nuse_valgrind: true\nmax_individual_test_time: 5s\nenvironment:\n  FOO: bar\n"
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	cfg, err := testconfig.Load(p)
	require.NoError(t, err)
	assert.False(t, cfg.Pipefail)
	assert.True(t, cfg.UseValgrind)
	assert.Equal(t, 5*time.Second, cfg.MaxIndividualTestTime)
	assert.Equal(t, "bar", cfg.Environment["FOO"])
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := testconfig.Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
