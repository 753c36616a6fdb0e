package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/autotagger/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "autotagger", version.String())
			return err
		},
	}
}
