// Package prompt builds the debug console's prompt string from the
// current shell environment's cwd, painted via internal/painter.
package prompt

import (
	"os"
	"strings"

	"github.com/shtestcore/shtest/internal/painter"
	"github.com/shtestcore/shtest/internal/shellenv"
)

// DefaultPrompt is used when the environment's cwd cannot be rendered.
const DefaultPrompt = "$ "

// Update renders env's cwd (with the home directory abbreviated as "~")
// through p, followed by " $ ".
func Update(p painter.Painter, env *shellenv.Env) string {
	cwd := env.Cwd()
	if cwd == "" {
		return DefaultPrompt
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" && strings.HasPrefix(cwd, home) {
		cwd = "~" + strings.TrimPrefix(cwd, home)
	}

	return painter.Paint(p.Path, cwd) + " $ "
}
