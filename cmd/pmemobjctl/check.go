package main

import (
	"fmt"

	"github.com/fenilsonani/pmemobj/pkg/pmemobj"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	var layout string

	cmd := &cobra.Command{
		Use:   "check PATH",
		Short: "Check a pool's consistency without mutating its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			consistent, err := pmemobj.Check(args[0], layout)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			if consistent {
				fmt.Fprintln(cmd.OutOrStdout(), "consistent")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "inconsistent")
			return fmt.Errorf("pool is inconsistent")
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "required layout name")
	return cmd
}
