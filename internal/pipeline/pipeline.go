// Package pipeline orchestrates reconciliation: parse, normalize locations,
// deduplicate, map products, compute financials, aggregate statistics.
// Every caller (upload handler, batch import, reporting) goes through this
// one implementation so the dedup key and margin math cannot drift.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/smartvending/vendledger/internal/catalog"
	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/dedup"
	"github.com/smartvending/vendledger/internal/finance"
	"github.com/smartvending/vendledger/internal/location"
	"github.com/smartvending/vendledger/internal/model"
	"github.com/smartvending/vendledger/internal/parser"
)

// RunStats summarizes one pipeline run. Not persisted.
type RunStats struct {
	Filename          string
	Source            model.SourceSystem
	RawCount          int
	DuplicatesRemoved int
	DirectMapped      int
	FamilyMapped      int
	Unmapped          int
	TotalRevenue      float64
	TotalProfit       float64
	UnmappedRevenue   float64
	CoveragePercent   float64
	Errors            []string
}

// Result is the output of processing one export file.
type Result struct {
	Transactions []model.Transaction
	Stats        RunStats
}

// Pipeline reconciles raw export files into canonical transactions. It is
// built once per run over immutable mapping tables and is safe to reuse
// across files; it holds no per-file state.
type Pipeline struct {
	catalog    *catalog.Catalog
	normalizer *location.Normalizer
	parser     *parser.Parser
	mode       dedup.Mode
}

// Config carries the mapping tables and options for a pipeline.
type Config struct {
	Catalog   *catalog.Catalog
	Locations *catalog.Locations
	// ProductSales is the optional auxiliary order-item pricing table.
	ProductSales *parser.ProductSalesIndex
	// Mode selects merge (idempotent) or insert-all key generation.
	Mode dedup.Mode
}

// New creates a Pipeline. The catalog is required; an empty location
// directory is acceptable (heuristic cleanup still applies).
func New(cfg Config) (*Pipeline, error) {
	if cfg.Catalog == nil {
		return nil, common.ErrMissingCatalog
	}
	return &Pipeline{
		catalog:    cfg.Catalog,
		normalizer: location.NewNormalizer(cfg.Locations),
		parser:     parser.NewParser().WithProductSales(cfg.ProductSales),
		mode:       cfg.Mode,
	}, nil
}

// Run processes one export file end to end. Given identical inputs it
// produces the identical transaction set; downstream storage relies on
// that for re-import safety.
func (p *Pipeline) Run(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	sales, source, err := p.parser.Parse(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	stats := RunStats{
		Filename: filepath.Base(filename),
		Source:   source,
		RawCount: len(sales),
	}

	kept, keys, removed := dedup.Deduplicate(sales, p.mode)
	stats.DuplicatesRemoved = removed

	transactions := make([]model.Transaction, 0, len(kept))
	for i, sale := range kept {
		txn := p.buildTransaction(sale, keys[i])
		transactions = append(transactions, txn)

		switch txn.MappingTier {
		case model.TierDirect:
			stats.DirectMapped++
		case model.TierFamily:
			stats.FamilyMapped++
		case model.TierUnmapped:
			stats.Unmapped++
			stats.UnmappedRevenue += txn.Revenue
		}
		stats.TotalRevenue += txn.Revenue
		stats.TotalProfit += txn.Profit
	}
	stats.CoveragePercent = coverage(stats.DirectMapped, stats.FamilyMapped, len(transactions))

	slog.Info("processed export file",
		"file", stats.Filename,
		"source", source,
		"raw", stats.RawCount,
		"duplicates_removed", stats.DuplicatesRemoved,
		"transactions", len(transactions),
		"coverage_percent", stats.CoveragePercent)

	return &Result{Transactions: transactions, Stats: stats}, nil
}

// buildTransaction enriches one surviving raw row into a canonical record.
func (p *Pipeline) buildTransaction(sale model.RawSale, key string) model.Transaction {
	mapped := p.catalog.Map(sale.Product)

	quantity := int(sale.Quantity)
	if quantity <= 0 {
		quantity = 1
	}

	profit, margin := finance.Compute(sale.Amount, mapped.UnitCost, quantity)

	txn := model.Transaction{
		DedupKey:           key,
		Timestamp:          sale.Timestamp,
		Location:           p.normalizer.Normalize(sale.Location, sale.Machine),
		MasterSKU:          mapped.MasterSKU,
		MasterName:         mapped.MasterName,
		ProductFamily:      mapped.ProductFamily,
		Type:               mapped.Type,
		Revenue:            sale.Amount,
		Cost:               mapped.UnitCost,
		Quantity:           quantity,
		Profit:             profit,
		GrossMarginPercent: margin,
		MappingTier:        mapped.Tier,
		Source:             sale.Source,
		PaymentMethod:      sale.PaymentMethod,
	}
	if !sale.Timestamp.IsZero() {
		txn.Date = sale.Timestamp.Format("2006-01-02")
	}
	return txn
}

// BatchResult aggregates a multi-file run.
type BatchResult struct {
	Transactions []model.Transaction
	Stats        []RunStats
	// Failed maps filenames to the error that stopped them; other files
	// in the batch still process.
	Failed map[string]error
}

// File pairs a filename with its content for batch processing.
type File struct {
	Name   string
	Reader io.Reader
}

// RunBatch processes several files sequentially, deduplicating across the
// whole batch in merge mode so the same physical sale exported by two
// systems survives only once. Parse failures are per-file, never fatal to
// the batch.
func (p *Pipeline) RunBatch(ctx context.Context, files []File) (*BatchResult, error) {
	batch := &BatchResult{Failed: make(map[string]error)}
	seen := make(map[string]bool)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.Run(ctx, f.Name, f.Reader)
		if err != nil {
			batch.Failed[filepath.Base(f.Name)] = err
			common.LogError(err, "skipping file in batch", common.Fields{"file": filepath.Base(f.Name)})
			continue
		}

		crossFileDupes := 0
		for _, txn := range result.Transactions {
			if p.mode == dedup.ModeMerge && seen[txn.DedupKey] {
				crossFileDupes++
				continue
			}
			seen[txn.DedupKey] = true
			batch.Transactions = append(batch.Transactions, txn)
		}
		result.Stats.DuplicatesRemoved += crossFileDupes
		batch.Stats = append(batch.Stats, result.Stats)
	}

	if len(batch.Transactions) == 0 && len(batch.Failed) == len(files) && len(files) > 0 {
		return batch, fmt.Errorf("all %d files failed to process", len(files))
	}
	return batch, nil
}

// coverage returns 100*(direct+family)/total, 0 when the run is empty.
func coverage(direct, family, total int) float64 {
	if total == 0 {
		return 0
	}
	return common.Round(float64(direct+family)/float64(total)*100, 1)
}
