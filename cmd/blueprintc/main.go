package main

import (
	"fmt"
	"os"

	"github.com/GriffinCanCode/EnvForge/backend/cmd/blueprintc/internal/command"
	"github.com/fatih/color"
)

func main() {
	if err := command.NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, color.RGB(229, 50, 50).Sprint("Error:"), msg)
		}
		os.Exit(1)
	}
}
