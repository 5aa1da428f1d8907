package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartvending/vendledger/internal/cli"
	"github.com/smartvending/vendledger/internal/model"
	"github.com/smartvending/vendledger/internal/pipeline"
	"github.com/smartvending/vendledger/internal/service"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report unmapped products in the stored ledger",
		Long: `Group ledger transactions that never matched a catalog entry by product
name, with revenue at stake and first/last seen dates. Use the output to
decide which aliases to add to the catalog next.

Examples:
  # Everything unmapped, biggest revenue first
  vendledger report

  # Only Nayax sales since March
  vendledger report --source nayax --from 2026-03-01`,
		RunE: runReport,
	}

	cmd.Flags().String("source", "", "restrict to one POS system (haha_ai, nayax, cantaloupe)")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Int("top", 0, "show only the top N products by revenue")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	sourceFlag, _ := cmd.Flags().GetString("source")
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	top, _ := cmd.Flags().GetInt("top")

	filter := service.TransactionFilter{}
	if sourceFlag != "" {
		source, err := model.ParseSourceSystem(sourceFlag)
		if err != nil {
			return err
		}
		filter.Source = source
	}
	if fromFlag != "" {
		from, err := parseDateFlag(fromFlag)
		if err != nil {
			return err
		}
		filter.StartDate = &from
	}
	if toFlag != "" {
		to, err := parseDateFlag(toFlag)
		if err != nil {
			return err
		}
		filter.EndDate = &to
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// The report needs every transaction in range, not just the unmapped
	// ones: revenue percentages are relative to total revenue.
	transactions, err := store.GetTransactions(ctx, filter)
	if err != nil {
		return err
	}

	if len(transactions) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No transactions in the ledger for this range."))
		return nil
	}

	report := pipeline.UnmappedReport(transactions)
	if top > 0 && top < len(report) {
		report = report[:top]
	}

	fmt.Print(cli.RenderUnmappedReport(report))
	return nil
}

func parseDateFlag(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}
