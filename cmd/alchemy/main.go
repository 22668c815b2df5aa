// Package main is the entry point for the alchemy CLI.
package main

import (
	"fmt"
	"os"

	"github.com/alchemy-swift/alchemy-sub004/cmd/alchemy/commands"
)

var (
	// Version information (set by build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	root := commands.NewRootCommand(commands.BuildInfo{Version: Version, Commit: Commit})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
