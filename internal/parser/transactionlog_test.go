package parser

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/smartvending/vendledger/internal/model"
)

// buildWorkbook writes rows to the first sheet of an in-memory workbook.
func buildWorkbook(t *testing.T, rows [][]string) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func transactionLogRows() [][]string {
	return [][]string{
		{"USAT Transaction Log"},
		{"01/01/2026 - 01/31/2026"},
		{"Timestamp", "Location", "Machine", "Product", "Slot", "Price", "Quantity", "Total", "Payment Type", "Cash Amount", "Card Amount"},
		{"2026-01-15 10:00:27", "West Bank", "[21] West Bank 3743", "Coca Cola 16.9oz", "A1", "2.50", "1", "2.50", "Credit Card", "", "2.50"},
		{"2026-01-15 10:02:00", "West Bank", "[21] West Bank 3743", "Snickers Bar", "B2", "1.75", "2", "3.50", "", "3.50", ""},
		{"2026-01-15 10:03:00", "West Bank", "[21] West Bank 3743", "Chips", "C3", "1.50", "", "1.50", "", "", "1.50"},
		{"2026-01-15 10:04:00", "West Bank", "[21] West Bank 3743", "", "D4", "1.00", "1", "1.00", "", "", ""},
		{"Total", "", "", "", "", "", "", "120.00"},
	}
}

func TestParseTransactionLog(t *testing.T) {
	sales, err := parseTransactionLog(context.Background(), buildWorkbook(t, transactionLogRows()))
	require.NoError(t, err)

	// Title block, the blank-product row, and the footer are all skipped.
	require.Len(t, sales, 3)

	first := sales[0]
	assert.Equal(t, model.SourceCantaloupe, first.Source)
	assert.Equal(t, "Coca Cola 16.9oz", first.Product)
	assert.Equal(t, "West Bank", first.Location)
	assert.Equal(t, "[21] West Bank 3743", first.Machine)
	assert.InDelta(t, 2.50, first.Amount, 1e-9)
	assert.InDelta(t, 1, first.Quantity, 1e-9)
	assert.Equal(t, "Credit Card", first.PaymentMethod, "explicit tender wins")

	assert.InDelta(t, 2, sales[1].Quantity, 1e-9)
	assert.Equal(t, "Cash", sales[1].PaymentMethod, "positive cash amount implies cash")

	assert.InDelta(t, 1, sales[2].Quantity, 1e-9, "blank quantity defaults to one")
	assert.Equal(t, "Card", sales[2].PaymentMethod)
}

func TestParseTransactionLogTwoRowHeader(t *testing.T) {
	// Historical variant: no date-range row.
	rows := [][]string{
		{"USAT Transaction Log"},
		{"Date/Time", "Location", "Machine", "Product", "Slot", "Price", "Qty", "Total"},
		{"2026-01-15 10:00:27", "The Met", "[9] The Met 2041", "Water", "A1", "1.00", "1", "1.00"},
	}

	sales, err := parseTransactionLog(context.Background(), buildWorkbook(t, rows))
	require.NoError(t, err)

	require.Len(t, sales, 1)
	assert.Equal(t, "Water", sales[0].Product)
	// No tender or cash/card columns at all: the fleet default applies.
	assert.Equal(t, "Card", sales[0].PaymentMethod)
}

func TestParseTransactionLogCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parseTransactionLog(ctx, buildWorkbook(t, transactionLogRows()))
	assert.ErrorIs(t, err, context.Canceled)
}
