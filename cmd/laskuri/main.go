package main

import (
	"os"

	"github.com/rustyeddy/laskuri/cmd/laskuri/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
