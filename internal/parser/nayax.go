package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/model"
)

// slotPriceSuffixRe matches the "(slot  price)" suffix Nayax appends to the
// product selection field, e.g. "Coca Cola(12  2.50)".
var slotPriceSuffixRe = regexp.MustCompile(`\([^)]+\)\s*$`)

// parseNayaxCSV parses a Nayax DynamicTransactionsMonitorMega CSV export.
// The report carries one or two banner rows before the header; newer files
// have one, older ones two, so the parser probes for the settlement column.
func parseNayaxCSV(ctx context.Context, r io.Reader) ([]model.RawSale, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.ErrEmptyFile
	}

	headerRow := findNayaxHeader(rows)
	if headerRow < 0 {
		return nil, fmt.Errorf("could not locate Nayax header row")
	}

	header := make(map[string]int)
	for i, name := range rows[headerRow] {
		header[strings.TrimSpace(name)] = i
	}
	txnIdx, ok := header["Transaction ID"]
	if !ok {
		return nil, fmt.Errorf("missing Transaction ID column")
	}
	productIdx := columnIndex(header, "Product Selection Info")
	settlementIdx := columnIndex(header, "Settlement Value (Vend Price)")
	authIdx := columnIndex(header, "Authorization Value")
	timeIdx := columnIndex(header, "Machine Authorization Time")
	machineIdx := columnIndex(header, "Machine Name")
	paymentIdx := columnIndex(header, "Payment Method (Source)")

	var sales []model.RawSale
	for _, row := range rows[headerRow+1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if cellValue(row, txnIdx) == "" {
			continue
		}

		product := strings.TrimSpace(slotPriceSuffixRe.ReplaceAllString(cellValue(row, productIdx), ""))
		if product == "" {
			continue
		}

		// Prefer the settled vend price; fall back to the authorization
		// hold when a row has not settled yet.
		amountCell := cellValue(row, settlementIdx)
		if amountCell == "" {
			amountCell = cellValue(row, authIdx)
		}

		rawTime := cellValue(row, timeIdx)
		sales = append(sales, model.RawSale{
			Source:        model.SourceNayax,
			Timestamp:     parseTimestamp(rawTime),
			RawTimestamp:  rawTime,
			Machine:       cellValue(row, machineIdx),
			Product:       product,
			Quantity:      1, // format carries no quantity
			Amount:        parseFloat(amountCell, 0),
			PaymentMethod: cellValue(row, paymentIdx),
		})
	}
	return sales, nil
}

// findNayaxHeader returns the index of the row containing the settlement
// column, checking the offsets the exporter has used over time.
func findNayaxHeader(rows [][]string) int {
	for _, offset := range []int{1, 2, 0} {
		if offset >= len(rows) {
			continue
		}
		for _, name := range rows[offset] {
			if strings.TrimSpace(name) == "Settlement Value (Vend Price)" {
				return offset
			}
		}
	}
	return -1
}

func columnIndex(header map[string]int, name string) int {
	if i, ok := header[name]; ok {
		return i
	}
	return -1
}
