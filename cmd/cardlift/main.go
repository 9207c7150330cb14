// Package main is the entry point for the cardlift CLI.
package main

import (
	"errors"
	"os"

	"github.com/cardlift/cardlift/internal/cli"
	"github.com/cardlift/cardlift/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps its error to a process exit code.
// Cobra prints the error itself; this only decides the code.
func run() int {
	root := cli.NewRootCmd(version.GetVersion())
	if err := root.Execute(); err != nil {
		return extractExitCode(err)
	}
	return 0
}

// extractExitCode returns the code carried by an ExitError, 1 for any other
// error, and 0 for nil.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}
	return 1
}
