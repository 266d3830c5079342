// Package main is the entry point for the moneybot CLI.
package main

import (
	"os"

	"github.com/mmynk/moneybot/cmd/moneybot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
