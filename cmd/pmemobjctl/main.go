package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "pmemobjctl",
		Short:   "Inspect and debug transactional object store pools",
		Long:    `pmemobjctl creates, opens, checks, and pokes at pmemobj-style pool files from the command line.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(
		newCreateCommand(),
		newOpenCommand(),
		newCheckCommand(),
		newAllocCommand(),
		newLsCommand(),
		newRootGetCommand(),
		newRootSetCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
