package main

import (
	"os"

	"github.com/focusrank/focusrank/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
