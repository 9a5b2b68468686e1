package main

import (
	"os"

	"parcelone/cmd/parcelctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
