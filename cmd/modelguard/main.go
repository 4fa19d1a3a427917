package main

import (
	"os"

	"github.com/psantana5/modelguard/cmd/modelguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
