// Command shsh is an interactive debug console for the mini-shell core:
// it reads lines, parses them, and evaluates them through the same
// evaluator/pipeline packages the test runner uses, rather than against
// a full OS shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shtestcore/shtest/internal/replconsole"
)

func main() {
	root := &cobra.Command{
		Use:   "shsh",
		Short: "Interactive debug console for the shtest mini-shell core",
		Run: func(cmd *cobra.Command, args []string) {
			replconsole.Run()
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
