// Package parser turns raw POS export files into the common RawSale shape.
// Each POS platform exports a different schema; the file name decides which
// format-specific parser handles the bytes.
package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/model"
)

// Parser dispatches export files to the format-specific parsers.
type Parser struct {
	// sales is the optional auxiliary per-product sales-detail index used
	// to price items inside bundled orders.
	sales *ProductSalesIndex
}

// NewParser creates a parser with no auxiliary data attached.
func NewParser() *Parser {
	return &Parser{}
}

// WithProductSales attaches the per-product sales-detail index.
func (p *Parser) WithProductSales(idx *ProductSalesIndex) *Parser {
	p.sales = idx
	return p
}

// Detect determines the source system from the export's file name. No POS
// lets the operator rename its exports, so filename tokens are reliable.
func Detect(filename string) (model.SourceSystem, error) {
	name := strings.ToLower(filepath.Base(filename))

	switch {
	case strings.Contains(name, "order") && strings.Contains(name, "details"):
		return model.SourceHahaAI, nil
	case strings.Contains(name, "dynamic") || strings.Contains(name, "mega"):
		return model.SourceNayax, nil
	case strings.Contains(name, "usat") || strings.Contains(name, "transaction-log"):
		return model.SourceCantaloupe, nil
	default:
		return "", fmt.Errorf("%w: %s", common.ErrUnknownFormat, filepath.Base(filename))
	}
}

// Parse reads one export file and returns its raw sale rows plus the source
// system that produced it.
func (p *Parser) Parse(ctx context.Context, filename string, r io.Reader) ([]model.RawSale, model.SourceSystem, error) {
	source, err := Detect(filename)
	if err != nil {
		return nil, "", err
	}

	var sales []model.RawSale
	switch source {
	case model.SourceHahaAI:
		sales, err = parseOrderDetails(ctx, r, p.sales)
	case model.SourceNayax:
		sales, err = parseNayaxCSV(ctx, r)
	case model.SourceCantaloupe:
		sales, err = parseTransactionLog(ctx, r)
	}
	if err != nil {
		return nil, source, fmt.Errorf("failed to parse %s export %s: %w", source, filepath.Base(filename), err)
	}
	return sales, source, nil
}

// timestampLayouts covers the formats observed across the three exporters
// and the strings excelize renders for date-styled cells.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"01-02-06 15:04",
	"2006/01/02 15:04:05",
}

// parseTimestamp parses a timestamp cell, returning the zero time when no
// layout matches. Bad timestamps are a per-row condition, not an error.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	// Excel serial date numbers show up when a sheet loses its cell styles.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		return excelEpoch.Add(time.Duration(serial * 24 * float64(time.Hour))).Round(time.Second)
	}
	return time.Time{}
}

// excelEpoch is day zero of the 1900 date system, offset for Excel's
// phantom 1900 leap day.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// parseFloat converts a numeric cell, treating blanks, stray currency
// symbols and unparseable values as the given default.
func parseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// cellValue returns row[idx] trimmed, or "" when the row is short.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
