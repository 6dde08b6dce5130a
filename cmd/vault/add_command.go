package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vault/internal/draft"
)

const (
	ansiReset  = "\x1b[0m"
	ansiYellow = "\x1b[33m"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <artist> <title>",
		Short: "Start a draft for a record and resolve it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				cmdCtx := cmd.Context()
				owner := ctx.ownerID()

				d, err := rt.orchestrator.Start(cmdCtx, owner, args[0], args[1])
				if err != nil {
					return err
				}

				// The CLI has no daemon to hand the job to, so resolve the
				// draft in place. Redelivery guards make this safe even when
				// a daemon picked it up first.
				if err := rt.orchestrator.RunDraft(cmdCtx, d.ID); err != nil {
					return err
				}
				resolved, err := rt.drafts.GetByID(cmdCtx, d.ID)
				if err != nil {
					return err
				}
				if resolved == nil {
					return fmt.Errorf("draft %d disappeared during resolution", d.ID)
				}

				printDraftSummary(cmd, resolved)
				return nil
			})
		},
	}
}

func printDraftSummary(cmd *cobra.Command, d *draft.Draft) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Draft %d (%s)\n", d.ID, d.Status)
	if d.Status == draft.StatusPending {
		if d.LastError != "" {
			fmt.Fprintf(out, "  last error: %s (attempt %d)\n", d.LastError, d.Attempts)
		}
		fmt.Fprintln(out, "  the daemon will retry; check `vault drafts` later")
		return
	}

	if d.Resolved == nil {
		return
	}
	resolved := d.Resolved

	country := resolved.Artist.CountryCode
	if resolved.Artist.CountryName != nil {
		country = fmt.Sprintf("%s (%s)", resolved.Artist.CountryCode, *resolved.Artist.CountryName)
	}
	rows := [][]string{
		{"Artist", resolved.Artist.Name},
		{"Country", country},
		{"Title", resolved.Record.Title},
		{"Year", resolved.Record.YearOriginal},
		{"Format", string(resolved.Record.Format)},
		{"Covers", fmt.Sprintf("%d", len(resolved.Covers))},
	}
	if d.Enrichment != nil && d.Enrichment.Fallback {
		rows = append(rows, []string{"Source", "fallback (no enrichment service)"})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	if d.DuplicateProbe != nil && d.DuplicateProbe.Exists {
		warning := fmt.Sprintf("A record with the same artist, title, and year (%s) is already in this collection.", d.DuplicateProbe.Year)
		if shouldColorize(out) {
			warning = ansiYellow + warning + ansiReset
		}
		fmt.Fprintln(out, warning)
	}
	fmt.Fprintf(out, "Run `vault finalize %d` to add it to the collection.\n", d.ID)
}
