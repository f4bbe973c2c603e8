// Package main is the entry point for the npdetector CLI.
package main

import (
	"os"

	"npdetector/cmd/npdetector/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
