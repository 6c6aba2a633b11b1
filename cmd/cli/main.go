package main

import (
	"os"

	"github.com/signin-dev/signin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
