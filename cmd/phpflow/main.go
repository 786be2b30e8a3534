// Package main implements the phpflow CLI. It builds control flow graphs
// for PHP routines and reports flow diagnostics.
package main

import (
	"fmt"
	"os"

	"github.com/l3aro/phpflow/cmd/phpflow/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.SetVersion(version, buildTime)
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
