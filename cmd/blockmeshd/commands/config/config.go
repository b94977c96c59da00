// Package config implements the "blockmeshd config" subcommands.
package config

import "github.com/spf13/cobra"

// Cmd is the config subcommand group.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect blockmesh configuration",
}

func init() {
	Cmd.AddCommand(showCmd)
}
