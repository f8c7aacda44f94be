package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes. Every surfaced engine or adapter error exits 1; success
// exits 0.
const (
	exitSuccess = 0
	exitFailure = 1
)

// RootCmd is the clu CLI's entrypoint command tree.
var RootCmd = &cobra.Command{
	Use:   "clu",
	Short: "clu is a local encrypted secret stash",
}

func init() {
	RootCmd.AddCommand(initStashCmd)
	RootCmd.AddCommand(putKeyCmd)
	RootCmd.AddCommand(getKeyCmd)
	RootCmd.AddCommand(deleteKeyCmd)
	RootCmd.AddCommand(listKeysCmd)
	RootCmd.AddCommand(purgeStashCmd)
	RootCmd.AddCommand(exportKeysCmd)
	RootCmd.AddCommand(loadKeysCmd)
}

// fail prints msg to stderr and exits 1. It never returns.
func fail(cmdName string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", cmdName, err)
	os.Exit(exitFailure)
}

// Execute runs the command tree and exits 1 on any cobra-level error
// (bad flags, unknown command) that RunE itself did not already handle.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(exitFailure)
	}
}
