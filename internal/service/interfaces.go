// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/smartvending/vendledger/internal/model"
)

// TransactionFilter defines filtering options for ledger queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Source    model.SourceSystem
	Tier      model.MappingTier
	Location  string
	Limit     int
	Offset    int
}

// Summary aggregates the stored ledger for reporting.
type Summary struct {
	BySource          map[model.SourceSystem]SourceSummary
	FirstDate         string
	LastDate          string
	TotalTransactions int
	TotalRevenue      float64
	TotalProfit       float64
}

// SourceSummary is the per-POS slice of a Summary.
type SourceSummary struct {
	Count   int
	Revenue float64
}

// UploadRecord captures one processed export file for the upload history.
type UploadRecord struct {
	ProcessedAt       time.Time
	Filename          string
	Source            model.SourceSystem
	Status            string
	TotalTransactions int
	DuplicatesRemoved int
	MappingCoverage   float64
	UnmappedRevenue   float64
}

// Storage defines the contract for the ledger persistence layer.
type Storage interface {
	// SaveTransactions inserts transactions, ignoring rows whose dedup
	// key already exists. Returns the number actually inserted; safe to
	// re-run on the same export.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)

	// ReplaceTransactions atomically swaps the entire ledger for the
	// given set: delete and insert commit together or not at all.
	ReplaceTransactions(ctx context.Context, transactions []model.Transaction) error

	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetSummary(ctx context.Context) (*Summary, error)

	SaveUploadRecord(ctx context.Context, record *UploadRecord) error
	GetUploadHistory(ctx context.Context, limit int) ([]UploadRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
