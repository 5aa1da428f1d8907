package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/smartvending/vendledger/internal/model"
)

// Catalog column headers. The curator maintains one alias column per POS
// system alongside the master fields.
const (
	colMasterSKU     = "master_sku"
	colMasterName    = "master_name"
	colProductFamily = "product_family"
	colType          = "type"
	colCost          = "cost"
)

var aliasColumns = map[string]model.SourceSystem{
	"haha_ai_name":    model.SourceHahaAI,
	"nayax_name":      model.SourceNayax,
	"cantaloupe_name": model.SourceCantaloupe,
}

// LoadCatalog reads the product catalog from a CSV or XLSX mapping table.
// The extension of filename selects the reader.
func LoadCatalog(filename string, r io.Reader, opts ...Option) (*Catalog, error) {
	rows, err := readTable(filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", filepath.Base(filename), err)
	}
	entries, err := entriesFromRows(rows)
	if err != nil {
		return nil, err
	}
	return New(entries, opts...), nil
}

// LoadLocations reads the location directory (raw_name, display_name).
func LoadLocations(filename string, r io.Reader) (*Locations, error) {
	rows, err := readTable(filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read location directory %s: %w", filepath.Base(filename), err)
	}
	if len(rows) == 0 {
		return NewLocations(nil), nil
	}

	header := normalizeHeader(rows[0])
	rawIdx, rawOK := header["raw_name"]
	dispIdx, dispOK := header["display_name"]
	if !rawOK || !dispOK {
		return nil, fmt.Errorf("location directory %s missing raw_name/display_name columns", filepath.Base(filename))
	}

	m := make(map[string]string)
	for _, row := range rows[1:] {
		raw := cell(row, rawIdx)
		display := cell(row, dispIdx)
		if raw == "" || display == "" {
			continue
		}
		m[raw] = display
	}
	return NewLocations(m), nil
}

func entriesFromRows(rows [][]string) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog table is empty")
	}

	header := normalizeHeader(rows[0])
	skuIdx, ok := header[colMasterSKU]
	if !ok {
		return nil, fmt.Errorf("catalog table missing %s column", colMasterSKU)
	}

	var entries []Entry
	seen := make(map[string]bool)
	for _, row := range rows[1:] {
		sku := cell(row, skuIdx)
		if sku == "" || seen[sku] {
			// Master_SKU is the unique key; repeated rows are curator noise.
			continue
		}
		seen[sku] = true

		e := Entry{
			MasterSKU:     sku,
			MasterName:    cellAt(row, header, colMasterName),
			ProductFamily: cellAt(row, header, colProductFamily),
			Type:          cellAt(row, header, colType),
			UnitCost:      ParseCost(cellAt(row, header, colCost)),
			Aliases:       make(map[model.SourceSystem]string),
		}
		for col, src := range aliasColumns {
			if alias := cellAt(row, header, col); alias != "" {
				e.Aliases[src] = alias
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseCost converts a cost cell to dollars, stripping currency symbols and
// thousands separators. Unparseable or absent values are 0.
func ParseCost(s string) float64 {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// readTable returns every row of a tabular file as strings. XLSX files are
// read from their first sheet; everything else is treated as CSV.
func readTable(filename string, r io.Reader) ([][]string, error) {
	if isExcel(filename) {
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		return f.GetRows(sheet)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func isExcel(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".xlsx" || ext == ".xls"
}

// normalizeHeader maps lowercased, trimmed header names to column indexes.
func normalizeHeader(row []string) map[string]int {
	m := make(map[string]int, len(row))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, exists := m[key]; !exists {
			m[key] = i
		}
	}
	return m
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func cellAt(row []string, header map[string]int, name string) string {
	idx, ok := header[name]
	if !ok {
		return ""
	}
	return cell(row, idx)
}
