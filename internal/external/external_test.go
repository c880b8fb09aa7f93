package external_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shtestcore/shtest/internal/external"
	"github.com/shtestcore/shtest/internal/shellenv"
)

func TestStartAndWaitCapturesExitCode(t *testing.T) {
	dir := t.TempDir()
	env := shellenv.New(dir, shellenv.EnvironToMap(os.Environ()))

	out, err := os.CreateTemp(dir, "out")
	require.NoError(t, err)
	defer out.Close()

	stage, err := external.Start(env, []string{"true"}, nil, out, out)
	require.NoError(t, err)
	assert.Greater(t, stage.PID, 0)
	assert.Equal(t, 0, stage.Wait())
}

func TestStartNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	env := shellenv.New(dir, shellenv.EnvironToMap(os.Environ()))

	stage, err := external.Start(env, []string{"false"}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stage.Wait())
}

func TestStartUsesEnvCwd(t *testing.T) {
	dir := t.TempDir()
	env := shellenv.New(dir, shellenv.EnvironToMap(os.Environ()))

	outPath := filepath.Join(dir, "pwd.out")
	out, err := os.Create(outPath)
	require.NoError(t, err)
	defer out.Close()

	stage, err := external.Start(env, []string{"pwd"}, nil, out, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stage.Wait())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, filepath.Clean(string(data[:len(data)-1])))
}
