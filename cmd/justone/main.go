package main

import (
	"os"

	"github.com/fatih/color"

	justone "github.com/mattkeenan/justone/pkg"
)

var version = "0.2.0"

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", justone.FormatErrorChain(err))
		os.Exit(1)
	}
}
