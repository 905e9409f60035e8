package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getstubd/stubd/pkg/config"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate stub collection files without writing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				coll, err := config.LoadStubFile(path)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d stubs ok\n", path, len(coll.Stubs))
			}
			return nil
		},
	}
}
