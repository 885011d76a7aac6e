package main

import (
	"os"

	"github.com/nexeed/teamforge/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
