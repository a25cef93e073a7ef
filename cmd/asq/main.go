// Package main is the entry point for the asq CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/assetsearch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
