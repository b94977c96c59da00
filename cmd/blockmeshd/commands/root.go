// Package commands implements the blockmeshd CLI.
package commands

import (
	"github.com/spf13/cobra"

	configcmd "github.com/blockmesh/blockmesh/cmd/blockmeshd/commands/config"
)

var (
	// Version is injected at build time via -ldflags.
	Version = "dev"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "blockmeshd",
	Short: "blockmeshd runs a block-addressed distributed file store cluster",
	Long: `blockmeshd starts a coordinator and its worker data-nodes in a
single process, exposing a block-addressed store over an in-process framed
protocol. Use "blockmeshd [command] --help" for details on a subcommand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: ./blockmesh.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configcmd.Cmd)
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string {
	return cfgFile
}
