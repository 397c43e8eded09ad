package main

import (
	"fmt"
	"os"

	"github.com/fenilsonani/pmemobj/pkg/pmemobj"
	"github.com/spf13/cobra"
)

func newCreateCommand() *cobra.Command {
	var (
		layout string
		size   int64
		mode   int32
	)

	cmd := &cobra.Command{
		Use:   "create PATH",
		Short: "Create a new pool file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pmemobj.Create(pmemobj.CreateParams{
				Path:   args[0],
				Layout: layout,
				Size:   uint64(size),
				Mode:   os.FileMode(mode),
			})
			if err != nil {
				return fmt.Errorf("create: %w", err)
			}
			defer pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "created pool %s (uuid_lo=%#016x)\n", args[0], pool.UUIDLo())
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "layout name")
	cmd.Flags().Int64Var(&size, "size", 8<<20, "pool size in bytes")
	cmd.Flags().Int32Var(&mode, "mode", 0600, "file mode")

	return cmd
}
