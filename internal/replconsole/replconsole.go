// Package replconsole is the interactive debug console: a readline-based
// REPL that parses each line with internal/parser and evaluates it
// through internal/evaluator, against the same internal/shellenv,
// internal/pipeline and internal/builtin packages the test-execution core
// uses. It is adapted from the teacher shell's boot/Run/interruptHandler
// loop, generalized from a full OS-command shell down to this module's
// restricted mini-shell semantics.
package replconsole

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/shtestcore/shtest/internal/completer"
	"github.com/shtestcore/shtest/internal/config"
	"github.com/shtestcore/shtest/internal/evaluator"
	"github.com/shtestcore/shtest/internal/painter"
	"github.com/shtestcore/shtest/internal/parser"
	"github.com/shtestcore/shtest/internal/prompt"
	"github.com/shtestcore/shtest/internal/shellenv"
	"github.com/shtestcore/shtest/internal/timeoutsup"
)

// Console holds the runtime state of the debug console.
type Console struct {
	mu            sync.Mutex
	sigCh         chan os.Signal
	stopCh        chan struct{}
	painter       painter.Painter
	env           *shellenv.Env
	terminal      *readline.Instance
	completer     *completer.Completer
	activeSup     *timeoutsup.Supervisor // supervisor for the line currently executing, if any
	descriptors   int
	checkCounter  uint
	checkInterval uint
	pipefail      bool
}

// Run starts the main interactive loop: boot, then repeatedly read a
// line, parse it, evaluate it, and report the result. Returns on EOF or
// the "exit" command.
func Run() {
	console, err := boot()
	if err != nil {
		panic(err)
	}
	defer console.shutdown()

	for {
		console.terminal.Config.AutoComplete = console.refreshCompleter()
		console.terminal.SetPrompt(prompt.Update(console.painter, console.env))

		line, err := console.terminal.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			} else if errors.Is(err, io.EOF) {
				return
			}
			panic(err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			fmt.Println(line)
			return
		}

		console.evalLine(line)
	}
}

func boot() (*Console, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cfg = config.Default()
	}

	readlineCfg := &readline.Config{
		HistoryFile:     cfg.Terminal.HistoryFile,
		HistoryLimit:    cfg.Terminal.HistoryLimit,
		InterruptPrompt: cfg.Terminal.InterruptPrompt,
		EOFPrompt:       "\n" + cfg.Terminal.EOFPrompt,
	}

	terminal, err := readline.NewEx(readlineCfg)
	if err != nil {
		return nil, fmt.Errorf("shsh: boot: failed to create terminal instance: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("shsh: boot: cannot determine cwd: %w", err)
	}

	descriptors, _ := os.ReadDir(fmt.Sprintf("/proc/%d/fd", os.Getpid()))

	console := &Console{
		terminal:      terminal,
		sigCh:         make(chan os.Signal, 1),
		stopCh:        make(chan struct{}),
		descriptors:   len(descriptors),
		checkInterval: cfg.Terminal.CheckInterval,
		painter:       painter.NewPainter(cfg.Prompt),
		env:           shellenv.New(cwd, shellenv.EnvironToMap(os.Environ())),
		completer:     completer.New(),
		pipefail:      true,
	}

	signal.Notify(console.sigCh, os.Interrupt)
	go console.interruptHandler()

	return console, nil
}

func (c *Console) refreshCompleter() *completer.Completer {
	c.completer.Update(c.env.Cwd())
	return c.completer
}

// interruptHandler forwards SIGINT to the currently executing line's
// timeout supervisor, aborting its whole process tree. Exits when
// shutdown closes stopCh.
func (c *Console) interruptHandler() {
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.sigCh:
			c.mu.Lock()
			if c.activeSup != nil {
				c.activeSup.Abort()
			}
			c.mu.Unlock()
		}
	}
}

func (c *Console) shutdown() {
	signal.Stop(c.sigCh)
	close(c.stopCh)
	_ = c.terminal.Close()
}

// evalLine parses and evaluates one line, printing its captured output
// and reporting any error or non-zero exit.
func (c *Console) evalLine(line string) {
	node, err := parser.Parse(line, c.pipefail)
	if err != nil {
		c.report(err)
		return
	}

	sup := timeoutsup.New(0)
	c.mu.Lock()
	c.activeSup = sup
	c.mu.Unlock()

	outcome, err := evaluator.Run(c.env, node, sup)

	c.mu.Lock()
	c.activeSup = nil
	c.mu.Unlock()

	if err != nil {
		c.report(err)
		return
	}

	for _, step := range outcome.Steps {
		for _, stage := range step.Result.Stages {
			if stage.Stdout != "" {
				fmt.Fprint(os.Stdout, stage.Stdout)
			}
			if stage.Stderr != "" {
				fmt.Fprint(os.Stderr, stage.Stderr)
			}
		}
	}

	c.sysmon(outcome.ExitCode)
}

func (c *Console) report(err error) {
	fmt.Fprintln(os.Stderr, err)
}

// sysmon checks for file descriptor leaks relative to the boot-time
// baseline, every checkInterval evaluated lines.
func (c *Console) sysmon(exitCode int) {
	if exitCode != 0 {
		fmt.Fprintf(os.Stderr, "shsh: exit %d\n", exitCode)
	}

	if c.checkInterval == 0 {
		return
	}
	c.checkCounter++
	if c.checkCounter < c.checkInterval {
		return
	}
	c.checkCounter = 0

	fdDir := fmt.Sprintf("/proc/%d/fd", os.Getpid())
	current, err := os.ReadDir(fdDir)
	if err != nil {
		return
	}
	if len(current) > c.descriptors {
		fmt.Fprintf(os.Stderr, "shsh: descriptor leak detected: %d fds above baseline\n",
			len(current)-c.descriptors)
	}
}
