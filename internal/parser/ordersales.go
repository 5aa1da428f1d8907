package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ProductSalesIndex holds the Haha AI per-product sales-detail table keyed
// by (order number, normalized product name). Order-detail parsing uses it
// to price individual items inside bundled orders.
type ProductSalesIndex struct {
	entries map[string]productSales
}

type productSales struct {
	amount   float64
	quantity float64
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeItemName collapses whitespace and lowercases so the order-detail
// bundle text and the sales-detail product column agree.
func normalizeItemName(name string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

func salesKey(orderNumber, product string) string {
	return strings.TrimSpace(orderNumber) + "||" + normalizeItemName(product)
}

// Lookup returns the exact amount and quantity recorded for an order item.
func (idx *ProductSalesIndex) Lookup(orderNumber, product string) (amount, quantity float64, ok bool) {
	if idx == nil {
		return 0, 0, false
	}
	e, found := idx.entries[salesKey(orderNumber, product)]
	if !found {
		return 0, 0, false
	}
	return e.amount, e.quantity, true
}

// Len returns the number of indexed (order, product) pairs.
func (idx *ProductSalesIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// LoadProductSales reads a "Product Sales Details" table (XLSX or CSV) into
// an index. Duplicate (order, product) pairs are merged by summing, which
// matches how the exporter splits large orders across rows.
func LoadProductSales(filename string, r io.Reader) (*ProductSalesIndex, error) {
	var rows [][]string
	var err error

	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".xlsx" || ext == ".xls" {
		var f *excelize.File
		f, err = excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open product sales details: %w", err)
		}
		defer func() { _ = f.Close() }()
		rows, err = f.GetRows(f.GetSheetName(0))
	} else {
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		rows, err = reader.ReadAll()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read product sales details: %w", err)
	}
	if len(rows) == 0 {
		return &ProductSalesIndex{entries: map[string]productSales{}}, nil
	}

	productIdx, orderIdx, salesIdx, amountIdx := -1, -1, -1, -1
	for i, name := range rows[0] {
		lc := strings.ToLower(strings.TrimSpace(name))
		switch {
		case lc == "product":
			productIdx = i
		case strings.Contains(lc, "order number"):
			orderIdx = i
		case strings.Contains(lc, "sales volume"):
			salesIdx = i
		case strings.Contains(lc, "amount received"):
			amountIdx = i
		}
	}
	if productIdx < 0 || orderIdx < 0 || salesIdx < 0 || amountIdx < 0 {
		return nil, fmt.Errorf("product sales details missing expected columns")
	}

	entries := make(map[string]productSales)
	for _, row := range rows[1:] {
		order := cellValue(row, orderIdx)
		product := cellValue(row, productIdx)
		if order == "" || product == "" {
			continue
		}
		key := salesKey(order, product)
		e := entries[key]
		e.amount += parseFloat(cellValue(row, amountIdx), 0)
		e.quantity += parseFloat(cellValue(row, salesIdx), 0)
		entries[key] = e
	}
	return &ProductSalesIndex{entries: entries}, nil
}
