// Package main is the entry point for the lambdaq CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/lambdaq/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	// Commands report their own failures; only usage errors are printed
	// here.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
