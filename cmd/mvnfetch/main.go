package main

import (
	"os"

	"github.com/bianoble/mvnfetch/cmd/mvnfetch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
