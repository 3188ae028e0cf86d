// Package main is the entry point for the realty CLI.
package main

import (
	"os"

	"github.com/jmylchreest/realty/cmd/realty/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
