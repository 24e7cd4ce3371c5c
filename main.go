// Package main is the entry point for the flowcore CLI.
package main

import (
	"fmt"
	"os"

	cmd "github.com/sonne120/flowcore/cmd/flowcore"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
