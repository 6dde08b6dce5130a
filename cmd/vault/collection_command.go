package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCollectionCommand(ctx *commandContext) *cobra.Command {
	var limitFlag, offsetFlag int

	cmd := &cobra.Command{
		Use:   "collection",
		Short: "List the records in the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				owner := ctx.ownerID()
				items, err := rt.catalogStore.ListCollection(cmd.Context(), owner, limitFlag, offsetFlag)
				if err != nil {
					return err
				}
				total, err := rt.catalogStore.CountCollection(cmd.Context(), owner)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "The collection is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					cover := ""
					if item.CoverFile != "" {
						cover = "yes"
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.EditionID, 10),
						item.ArtistName,
						item.Title,
						item.YearOriginal,
						string(item.Format),
						item.CountryCode,
						cover,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Edition", "Artist", "Title", "Year", "Format", "Country", "Cover"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				fmt.Fprintf(out, "%d of %d records\n", len(items), total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum number of records to list")
	cmd.Flags().IntVar(&offsetFlag, "offset", 0, "Number of records to skip")

	return cmd
}
