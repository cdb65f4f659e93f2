// Package main provides the entry point for the shellbot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/shellbot-ai/shellbot/cmd/shellbot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
