// Package main provides the storelens command.
package main

import (
	"os"

	"github.com/leapstack-labs/storelens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
