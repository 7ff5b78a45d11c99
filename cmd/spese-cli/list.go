package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spesefx/internal/cli"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withPipeline(cmd.Context(), func(p *cli.Pipeline) error {
				if _, err := p.Listing.Refresh(cmd.Context()); err != nil {
					return err
				}

				items := p.Listing.Items()
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "no expenses recorded")
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tCATEGORY\tAMOUNT\tORIGINAL\tID")
				for _, it := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n",
						it.Date, it.Category, it.Display,
						it.OriginalAmount.String(), it.OriginalCurrencyCode, it.ID)
				}
				return tw.Flush()
			})
		},
	}
}
