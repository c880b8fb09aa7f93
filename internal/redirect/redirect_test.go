package redirect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/redirect"
)

func cmdWithRedirs(redirs ...ast.Redirect) *ast.Command {
	return &ast.Command{Argv: []ast.Token{{Value: "echo"}}, Redirs: redirs}
}

func TestBuildOutputRedirectCreatesFile(t *testing.T) {
	dir := t.TempDir()
	cmd := cmdWithRedirs(ast.Redirect{Op: ast.RedirOut, Target: "out.txt"})

	plan, err := redirect.Build(dir, cmd)
	require.NoError(t, err)
	defer plan.Close()

	require.NotNil(t, plan.Stdout)
	_, err = os.Stat(filepath.Join(dir, "out.txt"))
	assert.NoError(t, err)
}

func TestBuildSameFileStdoutStderrSharesDescriptor(t *testing.T) {
	dir := t.TempDir()
	cmd := cmdWithRedirs(
		ast.Redirect{Op: ast.RedirOut, FD: 1, Target: "both.txt"},
		ast.Redirect{Op: ast.RedirOut, FD: 2, Target: "both.txt"},
	)

	plan, err := redirect.Build(dir, cmd)
	require.NoError(t, err)
	defer plan.Close()

	require.Len(t, plan.Ledger, 1, "the duplicate target must reuse the first descriptor")
	assert.Same(t, plan.Stdout, plan.Stderr)
}

func TestBuildLaterRedirectOverridesEarlier(t *testing.T) {
	dir := t.TempDir()
	cmd := cmdWithRedirs(
		ast.Redirect{Op: ast.RedirOut, Target: "first.txt"},
		ast.Redirect{Op: ast.RedirOut, Target: "second.txt"},
	)

	plan, err := redirect.Build(dir, cmd)
	require.NoError(t, err)
	defer plan.Close()

	assert.Equal(t, "second.txt", filepath.Base(plan.Stdout.Name()))
}

func TestBuildDupStderrToStdout(t *testing.T) {
	dir := t.TempDir()
	cmd := cmdWithRedirs(
		ast.Redirect{Op: ast.RedirOut, FD: 1, Target: "out.txt"},
		ast.Redirect{Op: ast.RedirDup, FD: 2, Target: "1"},
	)

	plan, err := redirect.Build(dir, cmd)
	require.NoError(t, err)
	defer plan.Close()

	assert.Same(t, plan.Stdout, plan.Stderr)
}

func TestBuildInputRedirectOpensExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("hi"), 0o644))
	cmd := cmdWithRedirs(ast.Redirect{Op: ast.RedirIn, Target: "in.txt"})

	plan, err := redirect.Build(dir, cmd)
	require.NoError(t, err)
	defer plan.Close()

	require.NotNil(t, plan.Stdin)
}

func TestBuildMissingInputFileErrors(t *testing.T) {
	dir := t.TempDir()
	cmd := cmdWithRedirs(ast.Redirect{Op: ast.RedirIn, Target: "missing.txt"})

	_, err := redirect.Build(dir, cmd)
	assert.Error(t, err)
}
