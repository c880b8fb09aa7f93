// Command shtest is a minimal single-test harness: it directive-scans a
// test source file, composes its RUN lines through the substitution
// engine, executes them via the script composer, and prints a PASS/FAIL
// verdict with captured output. It exercises the full test-execution
// core end to end; it is not the discovery/reporting front-end a full
// test-suite runner would provide.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shtestcore/shtest/internal/composer"
	"github.com/shtestcore/shtest/internal/directive"
	"github.com/shtestcore/shtest/internal/shellenv"
	"github.com/shtestcore/shtest/internal/substitution"
	"github.com/shtestcore/shtest/internal/testconfig"
)

var vocabulary = []directive.Keyword{
	{Name: "RUN", Kind: directive.COMMAND},
	{Name: "XFAIL", Kind: directive.TAG},
}

func main() {
	var (
		configPath string
		external   bool
	)

	root := &cobra.Command{
		Use:   "shtest <test-file>",
		Short: "Run a single directive-driven test file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(args[0], configPath, external)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a testconfig file (YAML/TOML/JSON)")
	root.Flags().BoolVar(&external, "external", false, "run RUN lines through an external shell interpreter instead of the embedded evaluator")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTest(testFile, configPath string, external bool) error {
	cfg := testconfig.Default()
	if configPath != "" {
		loaded, err := testconfig.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	matches, err := directive.Scan(testFile, vocabulary)
	if err != nil {
		return err
	}

	var runLines []string
	xfail := false
	for _, m := range matches {
		switch m.Keyword {
		case "RUN:":
			runLines = append(runLines, strings.TrimSpace(m.Value))
		case "XFAIL.":
			xfail = true
		}
	}
	if len(runLines) == 0 {
		fmt.Printf("%s: no RUN: directives found\n", testFile)
		os.Exit(1)
	}

	absTestFile, err := filepath.Abs(testFile)
	if err != nil {
		return err
	}
	tempDir, tempBase := composer.TempPaths(absTestFile)

	pairs := substitution.Default(substitution.Paths{
		SourcePath:     absTestFile,
		TempDir:        tempDir,
		TempBase:       tempBase,
		NormalizeSlash: cfg.IsWindows,
	}, cfg.Substitutions, cfg.IsWindows)

	commands := make([]string, len(runLines))
	for i, line := range runLines {
		commands[i] = substitution.Apply(line, pairs)
	}

	cwd := filepath.Dir(absTestFile)
	var result composer.Result
	if external {
		result = composer.RunExternal(cfg, commands, cwd, tempBase)
	} else {
		env := shellenv.New(cwd, shellenv.EnvironToMap(os.Environ()))
		for k, v := range cfg.Environment {
			env.SetEnv(k, v)
		}
		result = composer.RunInternal(cfg, env, commands)
	}

	passed := result.ExitCode == 0
	if xfail {
		passed = !passed
	}

	verdict := color.New(color.FgGreen, color.Bold).Sprint("PASS")
	if !passed {
		verdict = color.New(color.FgRed, color.Bold).Sprint("FAIL")
	}
	fmt.Printf("%s: %s (exit %d)\n", verdict, testFile, result.ExitCode)
	if result.ErrorMessage != "" {
		fmt.Println(result.ErrorMessage)
	}
	if result.Stdout != "" {
		fmt.Print(result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}

	if !passed {
		os.Exit(1)
	}
	return nil
}
