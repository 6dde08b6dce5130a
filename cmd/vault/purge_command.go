package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove expired and terminal drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				removed, err := rt.orchestrator.PurgeExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d drafts\n", removed)
				return nil
			})
		},
	}
}
