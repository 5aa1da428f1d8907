package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smartvending/vendledger/internal/model"
	"github.com/smartvending/vendledger/internal/service"
)

// SaveUploadRecord appends one processed file to the upload history.
func (s *SQLiteStorage) SaveUploadRecord(ctx context.Context, record *service.UploadRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("upload record must not be nil")
	}
	if err := validateString(record.Filename, "filename"); err != nil {
		return err
	}

	processedAt := record.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_history (
			filename, source_system, total_transactions, duplicates_removed,
			mapping_coverage, unmapped_revenue, status, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Filename,
		nullable(string(record.Source)),
		record.TotalTransactions,
		record.DuplicatesRemoved,
		record.MappingCoverage,
		record.UnmappedRevenue,
		record.Status,
		processedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save upload record: %w", err)
	}
	return nil
}

// GetUploadHistory returns the most recent upload records, newest first.
func (s *SQLiteStorage) GetUploadHistory(ctx context.Context, limit int) ([]service.UploadRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, source_system, total_transactions, duplicates_removed,
		       mapping_coverage, unmapped_revenue, status, processed_at
		FROM upload_history
		ORDER BY processed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []service.UploadRecord
	for rows.Next() {
		var r service.UploadRecord
		var source sql.NullString
		if err := rows.Scan(
			&r.Filename,
			&source,
			&r.TotalTransactions,
			&r.DuplicatesRemoved,
			&r.MappingCoverage,
			&r.UnmappedRevenue,
			&r.Status,
			&r.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		r.Source = model.SourceSystem(source.String)
		records = append(records, r)
	}
	return records, rows.Err()
}
