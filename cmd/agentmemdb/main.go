package main

import (
	"os"

	"github.com/agentmem/agentmemdb/cmd/agentmemdb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
