// Command blockmeshd runs a block-addressed distributed file store
// cluster: one coordinator and its worker data-nodes, communicating over
// framed in-process channels.
package main

import (
	"fmt"
	"os"

	"github.com/blockmesh/blockmesh/cmd/blockmeshd/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
