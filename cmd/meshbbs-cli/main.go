// Package main provides the entry point for meshbbs-cli.
//
// meshbbs-cli inspects and edits a MeshBBS database (bulletins, mail and the
// channel directory), moves it between nodes with export and import, and
// reports the status of a running node.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/meshbbs-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
