package main

import (
	"os"

	"github.com/leftmike/bearsql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
