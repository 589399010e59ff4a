package main

import (
	"os"

	"github.com/peerflow/peerflow/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a peerflow repository in the current directory",
	Long: `Initialize a peerflow repository in the current directory.

Creates the .peerflow directory with a fresh configuration and a generated
blind-review key.

Example:
  peerflow init`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if _, err := config.Init(cwd); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if humanOutput {
		outputHuman("Initialized peerflow repository in %s\n", config.PeerflowPath(cwd))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.PeerflowPath(cwd)})
	}
	return nil
}
