package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/modelkit/version"
)

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if short {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.GetShortVersion())
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo().String())
			return err
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version")
	return cmd
}
