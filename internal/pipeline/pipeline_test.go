package pipeline_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/pipeline"
	"github.com/shtestcore/shtest/internal/shellenv"
	"github.com/shtestcore/shtest/internal/timeoutsup"
)

func lit(s string) ast.Token { return ast.Token{Kind: ast.Literal, Value: s} }

func cmd(argv ...string) *ast.Command {
	c := &ast.Command{}
	for _, a := range argv {
		c.Argv = append(c.Argv, lit(a))
	}
	return c
}

func newEnv(t *testing.T) *shellenv.Env {
	t.Helper()
	return shellenv.New(t.TempDir(), shellenv.EnvironToMap(os.Environ()))
}

func TestRunSingleExternalCommand(t *testing.T) {
	env := newEnv(t)
	sup := timeoutsup.New(0)
	pipe := &ast.Pipeline{Stages: []*ast.Command{cmd("echo", "hello")}}

	result, err := pipeline.Run(env, pipe, sup)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stages[0].Stdout)
}

func TestRunBuiltinEcho(t *testing.T) {
	env := newEnv(t)
	sup := timeoutsup.New(0)
	pipe := &ast.Pipeline{Stages: []*ast.Command{cmd("echo", "-n", "no-newline")}}

	result, err := pipeline.Run(env, pipe, sup)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", result.Stages[0].Stdout)
}

func TestRunTwoStagePipeWiresStdoutToStdin(t *testing.T) {
	env := newEnv(t)
	sup := timeoutsup.New(0)
	pipe := &ast.Pipeline{Stages: []*ast.Command{
		cmd("echo", "hello world"),
		cmd("wc", "-w"),
	}}

	result, err := pipeline.Run(env, pipe, sup)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stages[1].Stdout, "2")
}

func TestRunPipefailUsesRightmostNonzero(t *testing.T) {
	env := newEnv(t)
	sup := timeoutsup.New(0)
	pipe := &ast.Pipeline{
		Pipefail: true,
		Stages: []*ast.Command{
			cmd("false"),
			cmd("true"),
		},
	}

	result, err := pipeline.Run(env, pipe, sup)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunWithoutPipefailUsesLastStage(t *testing.T) {
	env := newEnv(t)
	sup := timeoutsup.New(0)
	pipe := &ast.Pipeline{
		Stages: []*ast.Command{
			cmd("false"),
			cmd("true"),
		},
	}

	result, err := pipeline.Run(env, pipe, sup)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunNegateInvertsExit(t *testing.T) {
	env := newEnv(t)
	sup := timeoutsup.New(0)
	pipe := &ast.Pipeline{Negate: true, Stages: []*ast.Command{cmd("true")}}

	result, err := pipeline.Run(env, pipe, sup)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunRedirectToFile(t *testing.T) {
	env := newEnv(t)
	sup := timeoutsup.New(0)
	outFile := env.Resolve("out.txt")
	c := cmd("echo", "redirected")
	c.Redirs = []ast.Redirect{{Op: ast.RedirOut, Target: "out.txt"}}
	pipe := &ast.Pipeline{Stages: []*ast.Command{c}}

	result, err := pipeline.Run(env, pipe, sup)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.Stages[0].Stdout)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "redirected\n", string(data))
}
