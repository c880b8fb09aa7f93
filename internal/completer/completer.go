// Package completer provides filesystem-aware tab completion for the
// debug console, adapted to this module's own builtin set (cd, echo,
// mkdir, rm, diff) instead of the teacher's full command roster.
package completer

import (
	"os"

	"github.com/chzyer/readline"
)

// Completer adapts the current working directory's contents to the
// readline.AutoCompleter interface, rebuilt on demand as the cwd changes.
type Completer struct {
	readlineCompleter *readline.PrefixCompleter
}

// New returns a Completer with an empty underlying PrefixCompleter;
// call Update before first use.
func New() *Completer {
	return &Completer{readlineCompleter: readline.NewPrefixCompleter()}
}

// Update rebuilds the completion tree from the entries of cwd.
func (c *Completer) Update(cwd string) {
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return
	}

	var dirs, files []readline.PrefixCompleterInterface
	for _, entry := range entries {
		if entry.IsDir() {
			item := readline.PcItem(entry.Name() + "/")
			dirs = append(dirs, item)
			files = append(files, item)
		} else {
			files = append(files, readline.PcItem(entry.Name()))
		}
	}

	rmTargets := append(append([]readline.PrefixCompleterInterface{}, files...), readline.PcItem("-rf", files...))

	c.readlineCompleter = readline.NewPrefixCompleter(
		readline.PcItem("cd", dirs...),
		readline.PcItem("echo"),
		readline.PcItem("mkdir", dirs...),
		readline.PcItem("rm", rmTargets...),
		readline.PcItem("diff", files...),
	)
}

// Do delegates to the underlying PrefixCompleter, satisfying
// readline.AutoCompleter.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	return c.readlineCompleter.Do(line, pos)
}
