package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/model"
)

// Fixed column layout of the Cantaloupe/USAT transaction log. The sheet is
// positional: header text varies between exports but column order does not.
const (
	logColTimestamp = iota
	logColLocation
	logColMachine
	logColProduct
	logColSlot
	logColPrice
	logColQuantity
	logColTotal
	logColPayment
)

// maxLeadingRows bounds the title/date-range/header block at the top of the
// sheet: 3 rows in the canonical layout, 2 in one historical variant.
const maxLeadingRows = 4

// parseTransactionLog parses the Cantaloupe usat-transaction-log workbook.
// Rows whose timestamp cell is blank or unparseable are treated as non-data,
// which skips the title block, stray header repeats and footer totals in
// either layout variant.
func parseTransactionLog(ctx context.Context, r io.Reader) ([]model.RawSale, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction log workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction log sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.ErrEmptyFile
	}

	paymentCols := detectPaymentColumns(rows)

	var sales []model.RawSale
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rawTime := cellValue(row, logColTimestamp)
		timestamp := parseTimestamp(rawTime)
		if timestamp.IsZero() {
			continue
		}

		product := cellValue(row, logColProduct)
		if product == "" {
			continue
		}

		sales = append(sales, model.RawSale{
			Source:        model.SourceCantaloupe,
			Timestamp:     timestamp,
			RawTimestamp:  rawTime,
			Location:      cellValue(row, logColLocation),
			Machine:       cellValue(row, logColMachine),
			Product:       product,
			Quantity:      parseFloat(cellValue(row, logColQuantity), 1),
			Amount:        parseFloat(cellValue(row, logColTotal), 0),
			PaymentMethod: inferPayment(row, paymentCols),
		})
	}
	return sales, nil
}

// paymentColumns locates tender-related columns by header name. The core
// columns are positional but payment detail columns drift between exports.
type paymentColumns struct {
	tender int
	cash   []int
	card   []int
}

// detectPaymentColumns scans the leading header block for a tender column
// and any cash/card amount columns.
func detectPaymentColumns(rows [][]string) paymentColumns {
	cols := paymentColumns{tender: -1}

	limit := maxLeadingRows
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		row := rows[i]
		if !isHeaderRow(row) {
			continue
		}
		for j, name := range row {
			lc := strings.ToLower(strings.TrimSpace(name))
			if lc == "" {
				continue
			}
			isAmount := strings.Contains(lc, "amount") || strings.Contains(lc, "total") || strings.Contains(lc, "value")
			switch {
			case cols.tender < 0 && containsAny(lc, "payment", "tender", "method", "type"):
				cols.tender = j
			case strings.Contains(lc, "cash") && isAmount:
				cols.cash = append(cols.cash, j)
			case containsAny(lc, "card", "credit", "debit") && isAmount:
				cols.card = append(cols.card, j)
			}
		}
		break
	}
	return cols
}

// isHeaderRow recognizes the column-header row by its timestamp label.
func isHeaderRow(row []string) bool {
	first := strings.ToLower(cellValue(row, 0))
	return strings.Contains(first, "timestamp") || strings.Contains(first, "date")
}

// inferPayment resolves the tender for one row, in priority order: explicit
// tender column, positive cash amount, positive card amount, then the card
// default (the fleet is card-first).
func inferPayment(row []string, cols paymentColumns) string {
	if cols.tender >= 0 {
		if v := cellValue(row, cols.tender); v != "" {
			return v
		}
	}

	cash := 0.0
	for _, idx := range cols.cash {
		cash += parseFloat(cellValue(row, idx), 0)
	}
	if cash > 0 {
		return "Cash"
	}

	card := 0.0
	for _, idx := range cols.card {
		card += parseFloat(cellValue(row, idx), 0)
	}
	if card > 0 {
		return "Card"
	}

	return "Card"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
