// Package main provides the entry point for the askbase CLI.
package main

import (
	"os"

	"github.com/askbase/askbase/cmd/askbase/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
