// Package main is the entry point for the tariff CLI.
package main

import (
	"os"

	"slab-tariff/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
