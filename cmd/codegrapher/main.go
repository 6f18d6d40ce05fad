// Package main is the entry point for the codegrapher CLI.
package main

import (
	"fmt"
	"os"

	"github.com/SPTS7/CodeGrapher/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
