package main

import (
	"fmt"

	"github.com/fenilsonani/pmemobj/pkg/pmemobj"
	"github.com/spf13/cobra"
)

func newLsCommand() *cobra.Command {
	var (
		layout  string
		typeNum uint16
	)

	cmd := &cobra.Command{
		Use:   "ls PATH",
		Short: "Walk a type's object list and print each OID's offset and usable size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := pmemobj.Open(args[0], layout)
			if err != nil {
				return fmt.Errorf("ls: %w", err)
			}
			defer pool.Close()

			oid, err := pool.First(typeNum)
			if err != nil {
				return fmt.Errorf("ls: %w", err)
			}

			out := cmd.OutOrStdout()
			for !oid.IsNull() {
				fmt.Fprintf(out, "off=%#x usable=%d\n", oid.Off, pool.AllocUsableSize(oid))
				oid = pool.Next(oid)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "", "required layout name")
	cmd.Flags().Uint16Var(&typeNum, "type", 0, "user type number")

	return cmd
}
