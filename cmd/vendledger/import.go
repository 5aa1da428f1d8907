package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/smartvending/vendledger/internal/cli"
	"github.com/smartvending/vendledger/internal/dedup"
	"github.com/smartvending/vendledger/internal/model"
	"github.com/smartvending/vendledger/internal/pipeline"
	"github.com/smartvending/vendledger/internal/service"
)

// insertBatchSize bounds how many rows go into one storage call so the
// progress bar tracks long imports.
const insertBatchSize = 500

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import POS export files into the ledger",
		Long: `Import sales exports from any of the three POS platforms. The format is
detected from the file name. Re-importing the same export is safe: the
composite dedup key collapses repeated sales.

Examples:
  # Import a single Cantaloupe transaction log
  vendledger import ~/Downloads/usat-transaction-log.xlsx

  # Import a month of exports from all three systems at once
  vendledger import ~/Downloads/*.xlsx ~/Downloads/*.csv

  # Replace the whole ledger with one export (atomic swap)
  vendledger import --replace ~/Downloads/usat-transaction-log.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("mode", "merge", "dedup mode: merge (idempotent) or insert-all (keep every row)")
	cmd.Flags().Bool("replace", false, "atomically replace the entire ledger with this import")
	cmd.Flags().BoolP("dry-run", "d", false, "preview import without saving")
	cmd.Flags().String("catalog", "", "product catalog file (csv or xlsx)")
	cmd.Flags().String("locations", "", "location directory file (csv)")
	cmd.Flags().String("product-sales", "", "auxiliary product sales details file for order exports")
	cmd.Flags().Bool("substring-match", false, "allow substring containment in product mapping")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	replace, _ := cmd.Flags().GetBool("replace")
	modeFlag, _ := cmd.Flags().GetString("mode")
	catalogPath, _ := cmd.Flags().GetString("catalog")
	locationsPath, _ := cmd.Flags().GetString("locations")
	salesPath, _ := cmd.Flags().GetString("product-sales")
	substring, _ := cmd.Flags().GetBool("substring-match")

	mode, err := parseMode(modeFlag)
	if err != nil {
		return err
	}
	if mode == dedup.ModeInsertAll && !replace && !dryRun {
		return fmt.Errorf("--mode insert-all requires --replace: ordinal keys only make sense against a cleared ledger")
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	tables, err := loadMappingTables(catalogPath, locationsPath, salesPath, substring)
	if err != nil {
		return err
	}

	pipe, err := tables.newPipeline(pipeline.Config{Mode: mode})
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var batchFiles []pipeline.File
	var closers []*os.File
	defer func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}()
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		closers = append(closers, f)
		batchFiles = append(batchFiles, pipeline.File{Name: path, Reader: f})
	}

	batch, err := pipe.RunBatch(ctx, batchFiles)
	if err != nil {
		return err
	}

	for _, stats := range batch.Stats {
		fmt.Print(cli.RenderRunStats(stats))
	}
	for name, ferr := range batch.Failed {
		fmt.Println(cli.ErrorStyle.Render(fmt.Sprintf("✗ %s: %v", name, ferr)))
	}

	if len(batch.Transactions) == 0 {
		fmt.Println(cli.WarningStyle.Render("No transactions to import."))
		return nil
	}

	if dryRun {
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("Dry run: %d transactions not saved.", len(batch.Transactions))))
		return nil
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	inserted, err := saveTransactions(cmd, store, batch.Transactions, replace)
	if err != nil {
		return err
	}

	for _, stats := range batch.Stats {
		record := &service.UploadRecord{
			Filename:          stats.Filename,
			Source:            stats.Source,
			TotalTransactions: stats.RawCount - stats.DuplicatesRemoved,
			DuplicatesRemoved: stats.DuplicatesRemoved,
			MappingCoverage:   stats.CoveragePercent,
			UnmappedRevenue:   stats.UnmappedRevenue,
			Status:            "success",
			ProcessedAt:       time.Now().UTC(),
		}
		if err := store.SaveUploadRecord(ctx, record); err != nil {
			return err
		}
	}

	skipped := len(batch.Transactions) - inserted
	fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("✓ Imported %d transactions (%d already present).", inserted, skipped)))
	return nil
}

// saveTransactions writes the batch in chunks behind a progress bar, using
// either the idempotent merge path or the atomic replace path.
func saveTransactions(cmd *cobra.Command, store service.Storage, transactions []model.Transaction, replace bool) (int, error) {
	ctx := cmd.Context()

	if replace {
		// Replace must stay a single storage call; no chunking.
		if err := store.ReplaceTransactions(ctx, transactions); err != nil {
			return 0, err
		}
		return len(transactions), nil
	}

	bar := progressbar.NewOptions(len(transactions),
		progressbar.OptionSetDescription("saving"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionClearOnFinish(),
	)

	inserted := 0
	for start := 0; start < len(transactions); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(transactions) {
			end = len(transactions)
		}
		n, err := store.SaveTransactions(ctx, transactions[start:end])
		if err != nil {
			return inserted, err
		}
		inserted += n
		_ = bar.Add(end - start)
	}
	_ = bar.Finish()
	return inserted, nil
}

func parseMode(s string) (dedup.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "merge", "":
		return dedup.ModeMerge, nil
	case "insert-all", "insertall":
		return dedup.ModeInsertAll, nil
	default:
		return dedup.ModeMerge, fmt.Errorf("invalid mode %q (want merge or insert-all)", s)
	}
}

// expandFiles resolves glob patterns and verifies every path exists.
func expandFiles(args []string) ([]string, error) {
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				return nil, fmt.Errorf("no files found matching %s", pattern)
			}
			files = append(files, pattern)
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}
