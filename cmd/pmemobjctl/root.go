package main

import (
	"fmt"

	"github.com/fenilsonani/pmemobj/pkg/pmemobj"
	"github.com/spf13/cobra"
)

func newRootGetCommand() *cobra.Command {
	var layout string

	cmd := &cobra.Command{
		Use:   "root-get PATH",
		Short: "Print the root object's offset and declared size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pmemobj.Open(args[0], layout)
			if err != nil {
				return fmt.Errorf("root-get: %w", err)
			}
			defer pool.Close()

			size := pool.RootSize()
			if size == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "root: empty")
				return nil
			}
			oid, err := pool.Root(size)
			if err != nil {
				return fmt.Errorf("root-get: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "off=%#x size=%d\n", oid.Off, size)
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "required layout name")
	return cmd
}

func newRootSetCommand() *cobra.Command {
	var (
		layout string
		size   uint64
	)

	cmd := &cobra.Command{
		Use:   "root-set PATH",
		Short: "Ensure the root object exists and is at least size bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pmemobj.Open(args[0], layout)
			if err != nil {
				return fmt.Errorf("root-set: %w", err)
			}
			defer pool.Close()

			oid, err := pool.Root(size)
			if err != nil {
				return fmt.Errorf("root-set: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "off=%#x size=%d\n", oid.Off, pool.RootSize())
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "required layout name")
	cmd.Flags().Uint64Var(&size, "size", 0, "minimum root size in bytes")
	return cmd
}
