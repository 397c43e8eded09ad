package main

import (
	"fmt"

	"github.com/fenilsonani/pmemobj/pkg/pmemobj"
	"github.com/spf13/cobra"
)

func newOpenCommand() *cobra.Command {
	var layout string

	cmd := &cobra.Command{
		Use:   "open PATH",
		Short: "Open a pool and print its path, uuid_lo, and root object size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pmemobj.Open(args[0], layout)
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer pool.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:        %s\n", args[0])
			fmt.Fprintf(out, "uuid_lo:     %#016x\n", pool.UUIDLo())
			fmt.Fprintf(out, "root_size:   %d\n", pool.RootSize())
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "required layout name")
	return cmd
}
