package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spesefx/internal/cli"
	"spesefx/internal/core"
)

func addCmd(a *app) *cobra.Command {
	var amount, category, date, currency string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Long: `Record an expense. Foreign amounts are converted to the reference
currency; when no rate is available the amount is stored unconverted.`,
		Example: "  spese-cli add --amount 100 --category travel --currency EUR\n  spese-cli add --amount 12.50 --category food --currency USD --date 2024-01-05",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}

			b := core.NewCandidateBuilder()
			fields := map[core.Field]string{
				core.FieldAmount:   amount,
				core.FieldCategory: category,
				core.FieldDate:     date,
				core.FieldCurrency: currency,
			}
			for _, field := range core.Fields() {
				if err := b.Set(field, fields[field]); err != nil {
					return err
				}
			}

			return a.withPipeline(cmd.Context(), func(p *cli.Pipeline) error {
				rec, err := p.Normalizer.Save(cmd.Context(), b.Candidate())
				if err != nil {
					if errors.Is(err, core.ErrValidation) {
						return fmt.Errorf("%w (see --help)", err)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describe(rec))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount spent, e.g. 12.50")
	cmd.Flags().StringVar(&category, "category", "", "one of Food, Travel, Shopping, Bills")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO-4217 code of the amount (required)")
	return cmd
}

func describe(rec core.NormalizedExpense) string {
	s := fmt.Sprintf("saved %s: %s", rec.ID, core.FormatAmount(rec))
	if rec.Converted() && rec.OriginalCurrencyCode != rec.DisplayCurrencyCode {
		s += fmt.Sprintf(" (%s %s at %s)", rec.OriginalAmount.String(), rec.OriginalCurrencyCode, rec.ConversionRateApplied.String())
	}
	return s
}
