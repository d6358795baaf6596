package main

import (
	"os"

	"github.com/policyrag/policyrag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
