package main

import (
	"fmt"

	"github.com/fenilsonani/pmemobj/pkg/pmemobj"
	"github.com/spf13/cobra"
)

func newAllocCommand() *cobra.Command {
	var (
		layout  string
		size    uint64
		typeNum uint16
		zero    bool
	)

	cmd := &cobra.Command{
		Use:   "alloc PATH",
		Short: "Allocate a debug object and print its OID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pmemobj.Open(args[0], layout)
			if err != nil {
				return fmt.Errorf("alloc: %w", err)
			}
			defer pool.Close()

			var oid pmemobj.OID
			if zero {
				oid, err = pool.Zalloc(size, typeNum, nil)
			} else {
				oid, err = pool.Alloc(size, typeNum, nil)
			}
			if err != nil {
				return fmt.Errorf("alloc: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "off=%#x type=%d usable=%d\n", oid.Off, typeNum, pool.AllocUsableSize(oid))
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "required layout name")
	cmd.Flags().Uint64Var(&size, "size", 64, "payload size in bytes")
	cmd.Flags().Uint16Var(&typeNum, "type", 0, "user type number")
	cmd.Flags().BoolVar(&zero, "zero", false, "zero-fill the payload")

	return cmd
}
