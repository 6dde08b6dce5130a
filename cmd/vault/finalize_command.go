package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vault/internal/catalog"
	"vault/internal/vinyl"
)

func newFinalizeCommand(ctx *commandContext) *cobra.Command {
	var (
		artistFlag  string
		countryFlag string
		titleFlag   string
		yearFlag    string
		formatFlag  string
		coverFlag   int
		coverURL    string
		notesFlag   string
	)

	cmd := &cobra.Command{
		Use:   "finalize <draft-id>",
		Short: "Turn a READY draft into a collection entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDraftID(args[0])
			if err != nil {
				return err
			}

			form := catalog.FinalForm{
				ArtistName:   artistFlag,
				CountryCode:  countryFlag,
				Title:        titleFlag,
				YearOriginal: yearFlag,
				CoverIndex:   coverFlag,
				CoverSource:  coverURL,
			}
			if formatFlag != "" {
				format, err := vinyl.ParseFormat(formatFlag)
				if err != nil {
					return fmt.Errorf("%w (expected one of 33T, 45T, Maxi45T, 78T, Mixte, Inconnu)", err)
				}
				form.Format = format
			}
			if trimmed := strings.TrimSpace(notesFlag); trimmed != "" {
				form.Notes = &trimmed
			}

			return ctx.withRuntime(func(rt *runtime) error {
				editionID, err := rt.finalizer.Finalize(cmd.Context(), id, ctx.ownerID(), form)
				if err != nil {
					return describeFinalizeError(err, id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Draft %d finalized as edition %d\n", id, editionID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&artistFlag, "artist", "", "Override the resolved artist name")
	cmd.Flags().StringVar(&countryFlag, "country", "", "Override the resolved country code")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Override the resolved title")
	cmd.Flags().StringVar(&yearFlag, "year", "", "Override the resolved original year")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Override the resolved format")
	cmd.Flags().IntVar(&coverFlag, "cover", -1, "Index of the resolved cover to store (-1 keeps the default)")
	cmd.Flags().StringVar(&coverURL, "cover-url", "", "Store a cover from this URL or local file instead")
	cmd.Flags().StringVar(&notesFlag, "notes", "", "Notes to keep on this edition")

	return cmd
}

func describeFinalizeError(err error, id int64) error {
	switch {
	case errors.Is(err, catalog.ErrDraftNotFound):
		return fmt.Errorf("draft %d not found", id)
	case errors.Is(err, catalog.ErrOwnerMismatch):
		return fmt.Errorf("draft %d belongs to another owner", id)
	case errors.Is(err, catalog.ErrDraftNotReady):
		return fmt.Errorf("draft %d is not READY; resolve it first with `vault drafts retry %d`", id, id)
	default:
		return err
	}
}
