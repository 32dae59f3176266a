package main

import (
	"os"

	"github.com/taskguard/taskguard/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
