package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/smartvending/vendledger/internal/model"
	"github.com/smartvending/vendledger/internal/service"
)

const insertTransactionSQL = `
	INSERT OR IGNORE INTO transactions (
		dedup_key, timestamp, date, location, master_sku, master_name,
		product_family, type, revenue, cost, quantity, profit,
		gross_margin_percent, mapping_tier, source_system, payment_method
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SaveTransactions inserts transactions, skipping any whose dedup key is
// already present. Returns the number of rows actually inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted, err := insertTransactionsTx(ctx, tx, transactions)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// ReplaceTransactions swaps the whole ledger for the given set inside one
// SQL transaction, so a crash mid-upload never leaves the table empty.
func (s *SQLiteStorage) ReplaceTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	if _, err := insertTransactionsTx(ctx, tx, transactions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	return nil
}

func insertTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) (int, error) {
	stmt, err := tx.PrepareContext(ctx, insertTransactionSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		var timestamp any
		if txn.HasTimestamp() {
			timestamp = txn.Timestamp
		}
		var date any
		if txn.Date != "" {
			date = txn.Date
		}

		res, err := stmt.ExecContext(ctx,
			txn.DedupKey,
			timestamp,
			date,
			txn.Location,
			txn.MasterSKU,
			txn.MasterName,
			nullable(txn.ProductFamily),
			nullable(txn.Type),
			txn.Revenue,
			txn.Cost,
			txn.Quantity,
			txn.Profit,
			txn.GrossMarginPercent,
			string(txn.MappingTier),
			string(txn.Source),
			nullable(txn.PaymentMethod),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert transaction %s: %w", txn.DedupKey, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// GetTransactions returns ledger rows matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT dedup_key, timestamp, date, location, master_sku, master_name,
		       product_family, type, revenue, cost, quantity, profit,
		       gross_margin_percent, mapping_tier, source_system, payment_method
		FROM transactions WHERE 1=1`)

	var args []any
	if filter.StartDate != nil {
		query.WriteString(" AND date >= ?")
		args = append(args, filter.StartDate.Format("2006-01-02"))
	}
	if filter.EndDate != nil {
		query.WriteString(" AND date <= ?")
		args = append(args, filter.EndDate.Format("2006-01-02"))
	}
	if filter.Source != "" {
		query.WriteString(" AND source_system = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Tier != "" {
		query.WriteString(" AND mapping_tier = ?")
		args = append(args, string(filter.Tier))
	}
	if filter.Location != "" {
		query.WriteString(" AND location = ?")
		args = append(args, filter.Location)
	}
	query.WriteString(" ORDER BY date DESC, dedup_key")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query.WriteString(" OFFSET ?")
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var txn model.Transaction
	var timestamp sql.NullTime
	var date, family, typ, tier, source, payment sql.NullString

	err := rows.Scan(
		&txn.DedupKey,
		&timestamp,
		&date,
		&txn.Location,
		&txn.MasterSKU,
		&txn.MasterName,
		&family,
		&typ,
		&txn.Revenue,
		&txn.Cost,
		&txn.Quantity,
		&txn.Profit,
		&txn.GrossMarginPercent,
		&tier,
		&source,
		&payment,
	)
	if err != nil {
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if timestamp.Valid {
		txn.Timestamp = timestamp.Time
	}
	txn.Date = date.String
	txn.ProductFamily = family.String
	txn.Type = typ.String
	txn.MappingTier = model.MappingTier(tier.String)
	txn.Source = model.SourceSystem(source.String)
	txn.PaymentMethod = payment.String
	return txn, nil
}

// GetSummary aggregates the stored ledger: totals, per-source slices, and
// the covered date range.
func (s *SQLiteStorage) GetSummary(ctx context.Context) (*service.Summary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	summary := &service.Summary{
		BySource: make(map[model.SourceSystem]service.SourceSummary),
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(revenue), 0),
		       COALESCE(SUM(profit), 0),
		       COALESCE(MIN(date), ''),
		       COALESCE(MAX(date), '')
		FROM transactions`)
	if err := row.Scan(
		&summary.TotalTransactions,
		&summary.TotalRevenue,
		&summary.TotalProfit,
		&summary.FirstDate,
		&summary.LastDate,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_system, COUNT(*), COALESCE(SUM(revenue), 0)
		FROM transactions
		GROUP BY source_system`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var source string
		var ss service.SourceSummary
		if err := rows.Scan(&source, &ss.Count, &ss.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan source summary: %w", err)
		}
		summary.BySource[model.SourceSystem(source)] = ss
	}
	return summary, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func validateTransactions(transactions []model.Transaction) error {
	for i := range transactions {
		if transactions[i].DedupKey == "" {
			return fmt.Errorf("transaction %d has an empty dedup key", i)
		}
	}
	return nil
}
