package parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/parser"
)

func TestParseSimpleCommand(t *testing.T) {
	node, err := parser.Parse("echo hello", false)
	require.NoError(t, err)
	require.True(t, node.IsLeaf())
	require.Len(t, node.Pipe.Stages, 1)
	assert.Equal(t, "echo", node.Pipe.Stages[0].Argv[0].Value)
	assert.Equal(t, "hello", node.Pipe.Stages[0].Argv[1].Value)
}

func TestParsePipeline(t *testing.T) {
	node, err := parser.Parse("false | true", true)
	require.NoError(t, err)
	require.True(t, node.IsLeaf())
	require.Len(t, node.Pipe.Stages, 2)
	assert.True(t, node.Pipe.Pipefail)
}

func TestParseAndOr(t *testing.T) {
	node, err := parser.Parse("cd /tmp && echo hello > out.txt", false)
	require.NoError(t, err)
	require.NotNil(t, node.Seq)
	assert.Equal(t, ast.SeqAnd, node.Seq.Op)

	right := node.Seq.Right
	require.True(t, right.IsLeaf())
	cmd := right.Pipe.Stages[0]
	require.Len(t, cmd.Redirs, 1)
	assert.Equal(t, ast.RedirOut, cmd.Redirs[0].Op)
	assert.Equal(t, "out.txt", cmd.Redirs[0].Target)
}

func TestParseGlobToken(t *testing.T) {
	node, err := parser.Parse("rm -rf *.o", false)
	require.NoError(t, err)
	argv := node.Pipe.Stages[0].Argv
	assert.Equal(t, ast.Glob, argv[len(argv)-1].Kind)
}

func TestParseBackgroundRejected(t *testing.T) {
	_, err := parser.Parse("sleep 10 &", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ast.ErrUnsupported)
}

func TestParseSemicolonChain(t *testing.T) {
	node, err := parser.Parse("echo a; echo b; echo c", false)
	require.NoError(t, err)
	require.NotNil(t, node.Seq)
	assert.Equal(t, ast.SeqThen, node.Seq.Op)
}

// TestParseIsStableAcrossReparse checks that reparsing identical source
// yields a structurally identical tree, not just an equal-looking one.
func TestParseIsStableAcrossReparse(t *testing.T) {
	const src = "cd /tmp && echo hello > out.txt || true"

	first, err := parser.Parse(src, true)
	require.NoError(t, err)
	second, err := parser.Parse(src, true)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reparse produced a different tree (-first +second):\n%s", diff)
	}
}
