package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vault/internal/draft"
)

func newDraftsCommand(ctx *commandContext) *cobra.Command {
	draftsCmd := &cobra.Command{
		Use:   "drafts",
		Short: "List and manage in-progress drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraftsList(cmd, ctx)
		},
	}

	draftsCmd.AddCommand(newDraftsShowCommand(ctx))
	draftsCmd.AddCommand(newDraftsCancelCommand(ctx))
	draftsCmd.AddCommand(newDraftsRetryCommand(ctx))
	draftsCmd.AddCommand(newDraftsStatsCommand(ctx))

	return draftsCmd
}

func runDraftsList(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withRuntime(func(rt *runtime) error {
		drafts, err := rt.drafts.ListByOwner(cmd.Context(), ctx.ownerID())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(drafts) == 0 {
			fmt.Fprintln(out, "No drafts")
			return nil
		}

		rows := make([][]string, 0, len(drafts))
		for _, d := range drafts {
			lastError := d.LastError
			if len(lastError) > 48 {
				lastError = lastError[:45] + "..."
			}
			rows = append(rows, []string{
				strconv.FormatInt(d.ID, 10),
				string(d.Status),
				d.Input.RawArtist,
				d.Input.RawTitle,
				strconv.Itoa(d.Attempts),
				d.ExpiresAt.Local().Format("2006-01-02 15:04"),
				lastError,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Status", "Artist", "Title", "Attempts", "Expires", "Last Error"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
		))
		return nil
	})
}

func newDraftsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Show a draft's resolution state as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDraftID(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				d, err := rt.drafts.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if d == nil {
					return fmt.Errorf("draft %d not found", id)
				}
				if d.OwnerID != ctx.ownerID() {
					return fmt.Errorf("draft %d belongs to another owner", id)
				}

				payload := map[string]any{
					"id":        d.ID,
					"status":    d.Status,
					"input":     d.Input,
					"attempts":  d.Attempts,
					"createdAt": d.CreatedAt,
					"expiresAt": d.ExpiresAt,
				}
				if d.LastError != "" {
					payload["lastError"] = d.LastError
				}
				if d.Catalog != nil {
					payload["catalog"] = d.Catalog
				}
				if d.Enrichment != nil {
					payload["enrichment"] = d.Enrichment
				}
				if d.Resolved != nil {
					payload["resolved"] = d.Resolved
				}
				if d.DuplicateProbe != nil {
					payload["duplicate"] = d.DuplicateProbe
				}

				encoded, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return fmt.Errorf("encode draft: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			})
		},
	}
}

func newDraftsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <draft-id>",
		Short: "Cancel a pending or ready draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDraftID(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				changed, err := rt.drafts.Cancel(cmd.Context(), id, ctx.ownerID())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !changed {
					fmt.Fprintf(out, "Draft %d was not cancellable (missing, finished, or another owner's)\n", id)
					return nil
				}
				fmt.Fprintf(out, "Draft %d cancelled\n", id)
				return nil
			})
		},
	}
}

func newDraftsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <draft-id>",
		Short: "Run the resolution pipeline for a pending draft now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDraftID(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				d, err := rt.drafts.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if d == nil {
					return fmt.Errorf("draft %d not found", id)
				}
				if d.OwnerID != ctx.ownerID() {
					return fmt.Errorf("draft %d belongs to another owner", id)
				}
				if d.Status != draft.StatusPending {
					return fmt.Errorf("draft %d is %s, only PENDING drafts can be retried", id, d.Status)
				}

				if err := rt.orchestrator.RunDraft(cmd.Context(), id); err != nil {
					return err
				}
				updated, err := rt.drafts.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if updated == nil {
					return fmt.Errorf("draft %d disappeared during retry", id)
				}
				printDraftSummary(cmd, updated)
				return nil
			})
		},
	}
}

func newDraftsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show draft counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				stats, err := rt.drafts.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(stats))
				for _, status := range []draft.Status{draft.StatusPending, draft.StatusReady, draft.StatusCancelled, draft.StatusDone} {
					if count, ok := stats[status]; ok {
						rows = append(rows, []string{string(status), strconv.Itoa(count)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No drafts")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func parseDraftID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid draft id %q", value)
	}
	return id, nil
}
