package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/model"
)

// placeholderItem stands in for orders whose product-details cell is blank
// so the order's revenue is not lost.
const placeholderItem = "Unknown Item"

// parseOrderDetails parses the Haha AI "Order details" workbook. Each input
// row is one customer order bundling comma-separated items with only an
// order-level payment total, so the parser splits the bundle into per-item
// rows and apportions the total.
func parseOrderDetails(ctx context.Context, r io.Reader, idx *ProductSalesIndex) ([]model.RawSale, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open order details workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read order details sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.ErrEmptyFile
	}

	header := make(map[string]int)
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	orderIdx, ok := header["order number"]
	if !ok {
		return nil, fmt.Errorf("order details missing Order number column")
	}
	productIdx := headerIndex(header, "product details")
	paymentTimeIdx := headerIndex(header, "payment time")
	creationTimeIdx := headerIndex(header, "creation time")
	amountIdx := headerIndex(header, "amount received")
	deviceIdx := headerIndex(header, "device number")

	var sales []model.RawSale
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		orderNum := cellValue(row, orderIdx)
		if orderNum == "" {
			continue
		}

		rawTime := cellValue(row, paymentTimeIdx)
		if rawTime == "" {
			rawTime = cellValue(row, creationTimeIdx)
		}
		timestamp := parseTimestamp(rawTime)
		amountReceived := parseFloat(cellValue(row, amountIdx), 0)
		device := cellValue(row, deviceIdx)

		items := splitBundle(cellValue(row, productIdx))
		if len(items) == 0 {
			items = []string{placeholderItem}
		}

		for _, item := range apportionOrder(orderNum, items, amountReceived, idx) {
			sales = append(sales, model.RawSale{
				Source:       model.SourceHahaAI,
				Timestamp:    timestamp,
				RawTimestamp: rawTime,
				Machine:      device,
				Product:      item.name,
				Quantity:     item.quantity,
				Amount:       item.amount,
			})
		}
	}

	slog.Debug("parsed order details export",
		"orders", len(rows)-1,
		"item_rows", len(sales),
		"sales_index", idx.Len())

	return sales, nil
}

func headerIndex(header map[string]int, name string) int {
	if i, ok := header[name]; ok {
		return i
	}
	return -1
}

// splitBundle breaks a comma-delimited product list into item names.
func splitBundle(details string) []string {
	var items []string
	for _, part := range strings.Split(details, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

type orderItem struct {
	name     string
	amount   float64
	quantity float64
}

// apportionOrder prices the items in one order. Items present in the
// sales-detail index keep their exact amount and quantity; the order's
// residual (total minus matched amounts, floored at zero) is split evenly
// across the unmatched items with quantity 1. Each index key is consumed
// at most once per order so repeated item names do not double-price.
func apportionOrder(orderNum string, items []string, orderTotal float64, idx *ProductSalesIndex) []orderItem {
	var matched, unmatched []orderItem
	usedKeys := make(map[string]bool)

	for _, item := range items {
		key := salesKey(orderNum, item)
		if amount, qty, ok := idx.Lookup(orderNum, item); ok && !usedKeys[key] {
			usedKeys[key] = true
			if qty <= 0 {
				qty = 1
			}
			matched = append(matched, orderItem{name: item, amount: amount, quantity: qty})
			continue
		}
		unmatched = append(unmatched, orderItem{name: item, quantity: 1})
	}

	matchedTotal := 0.0
	for _, m := range matched {
		matchedTotal += m.amount
	}
	residual := orderTotal - matchedTotal
	if residual < 0 {
		residual = 0
	}
	if len(unmatched) > 0 {
		share := residual / float64(len(unmatched))
		for i := range unmatched {
			unmatched[i].amount = share
		}
	}

	return append(matched, unmatched...)
}
