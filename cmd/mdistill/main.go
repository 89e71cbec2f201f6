// Package main is the entry point for the mdistill CLI.
package main

import (
	"os"

	"github.com/mdistill/mdistill/cmd/mdistill/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
