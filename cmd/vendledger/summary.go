package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartvending/vendledger/internal/cli"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show ledger totals and recent uploads",
		Long: `Print total transactions, revenue, and profit for the stored ledger,
broken down by POS system, followed by the most recent import runs.`,
		RunE: runSummary,
	}

	cmd.Flags().Int("uploads", 10, "number of recent uploads to show (0 to hide)")

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	uploads, _ := cmd.Flags().GetInt("uploads")

	ctx := cmd.Context()
	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := store.GetSummary(ctx)
	if err != nil {
		return err
	}

	fmt.Print(cli.RenderSummary(summary))

	if uploads <= 0 {
		return nil
	}

	history, err := store.GetUploadHistory(ctx, uploads)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	fmt.Println(cli.TitleStyle.Render("Recent uploads"))
	for _, rec := range history {
		line := fmt.Sprintf("  %s  %-12s %-40s %5d txns  %5.1f%% mapped",
			rec.ProcessedAt.Format("2006-01-02 15:04"),
			rec.Source,
			truncate(rec.Filename, 40),
			rec.TotalTransactions,
			rec.MappingCoverage,
		)
		if rec.Status != "success" {
			fmt.Println(cli.WarningStyle.Render(line))
			continue
		}
		fmt.Println(line)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
