package builtin_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shtestcore/shtest/internal/ast"
	"github.com/shtestcore/shtest/internal/builtin"
	"github.com/shtestcore/shtest/internal/shellenv"
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

func pipe(t *testing.T) (r, w *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestLookupKnownBuiltins(t *testing.T) {
	for _, name := range []string{"cd", "echo", "mkdir", "rm", "diff"} {
		_, ok := builtin.Lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := builtin.Lookup("not-a-builtin")
	assert.False(t, ok)
}

func TestCdChangesEnvCwd(t *testing.T) {
	env := newEnv(t)
	sub := filepath.Join(env.Cwd(), "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	f, _ := builtin.Lookup("cd")
	_, w := pipe(t)
	code := f(env, cmd("cd", "sub"), nil, w, w)

	assert.Equal(t, 0, code)
	assert.Equal(t, sub, env.Cwd())
}

func TestCdTooManyArgumentsFails(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("cd")
	_, w := pipe(t)
	code := f(env, cmd("cd", "a", "b"), nil, w, w)
	assert.Equal(t, 1, code)
}

func TestEchoJoinsArgsWithNewline(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("echo")
	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	code := f(env, cmd("echo", "hello", "world"), nil, out, out)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(data))
}

func TestEchoSuppressesNewlineWithDashN(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("echo")
	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	code := f(env, cmd("echo", "-n", "hi"), nil, out, out)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestEchoInterpretsEscapesWithDashE(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("echo")
	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	code := f(env, cmd("echo", "-e", "-n", "a\\tb"), nil, out, out)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, "a\tb", string(data))
}

func TestMkdirCreatesDirectory(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("mkdir")
	_, w := pipe(t)

	code := f(env, cmd("mkdir", "newdir"), nil, w, w)
	assert.Equal(t, 0, code)

	info, err := os.Stat(filepath.Join(env.Cwd(), "newdir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMkdirDashPToleratesExisting(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("mkdir")
	_, w := pipe(t)

	require.Equal(t, 0, f(env, cmd("mkdir", "-p", "a/b"), nil, w, w))
	assert.Equal(t, 0, f(env, cmd("mkdir", "-p", "a/b"), nil, w, w))
}

func TestMkdirMissingOperandFails(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("mkdir")
	_, w := pipe(t)
	assert.Equal(t, 1, f(env, cmd("mkdir"), nil, w, w))
}

func TestRmRemovesFile(t *testing.T) {
	env := newEnv(t)
	target := filepath.Join(env.Cwd(), "victim.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	f, _ := builtin.Lookup("rm")
	_, w := pipe(t)
	code := f(env, cmd("rm", "victim.txt"), nil, w, w)
	assert.Equal(t, 0, code)

	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestRmDirectoryWithoutRecursiveFails(t *testing.T) {
	env := newEnv(t)
	dir := filepath.Join(env.Cwd(), "adir")
	require.NoError(t, os.Mkdir(dir, 0o755))

	f, _ := builtin.Lookup("rm")
	_, w := pipe(t)
	code := f(env, cmd("rm", "adir"), nil, w, w)
	assert.Equal(t, 1, code)
}

func TestRmRecursiveRemovesDirectory(t *testing.T) {
	env := newEnv(t)
	dir := filepath.Join(env.Cwd(), "adir")
	require.NoError(t, os.Mkdir(dir, 0o755))

	f, _ := builtin.Lookup("rm")
	_, w := pipe(t)
	code := f(env, cmd("rm", "-r", "adir"), nil, w, w)
	assert.Equal(t, 0, code)

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRmForceIgnoresMissing(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("rm")
	_, w := pipe(t)
	code := f(env, cmd("rm", "-f", "nope.txt"), nil, w, w)
	assert.Equal(t, 0, code)
}

func TestDiffIdenticalFilesExitsZero(t *testing.T) {
	env := newEnv(t)
	a := filepath.Join(env.Cwd(), "a.txt")
	b := filepath.Join(env.Cwd(), "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("same\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same\n"), 0o644))

	f, _ := builtin.Lookup("diff")
	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	code := f(env, cmd("diff", "a.txt", "b.txt"), nil, out, out)
	assert.Equal(t, 0, code)
}

func TestDiffDifferentFilesExitsOneAndWritesHunk(t *testing.T) {
	env := newEnv(t)
	a := filepath.Join(env.Cwd(), "a.txt")
	b := filepath.Join(env.Cwd(), "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("one\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("two\n"), 0o644))

	f, _ := builtin.Lookup("diff")
	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	code := f(env, cmd("diff", "a.txt", "b.txt"), nil, out, out)
	assert.Equal(t, 1, code)

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "-one")
	assert.Contains(t, string(data), "+two")
}

func TestDiffWrongArgCountFails(t *testing.T) {
	env := newEnv(t)
	f, _ := builtin.Lookup("diff")
	_, w := pipe(t)
	code := f(env, cmd("diff", "only-one-file"), nil, w, w)
	assert.Equal(t, 2, code)
}
