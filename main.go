package main

import (
	"os"

	"github.com/spigell/talent-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
