package pipeline

import (
	"sort"

	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/model"
)

// UnmappedProduct is one line of the unmapped-products report the catalog
// curator works from when adding aliases.
type UnmappedProduct struct {
	ProductName      string
	FirstSeen        string
	LastSeen         string
	TotalRevenue     float64
	RevenuePercent   float64
	TransactionCount int
}

// UnmappedReport groups unmapped transactions by raw product name, sorted
// by revenue descending. RevenuePercent is relative to the revenue of all
// transactions passed in, not only the unmapped ones.
func UnmappedReport(transactions []model.Transaction) []UnmappedProduct {
	totalRevenue := 0.0
	byName := make(map[string]*UnmappedProduct)
	var order []string

	for _, txn := range transactions {
		totalRevenue += txn.Revenue
		if txn.MappingTier != model.TierUnmapped {
			continue
		}

		entry, ok := byName[txn.MasterName]
		if !ok {
			entry = &UnmappedProduct{ProductName: txn.MasterName}
			byName[txn.MasterName] = entry
			order = append(order, txn.MasterName)
		}
		entry.TotalRevenue += txn.Revenue
		entry.TransactionCount++
		if txn.Date != "" {
			if entry.FirstSeen == "" || txn.Date < entry.FirstSeen {
				entry.FirstSeen = txn.Date
			}
			if txn.Date > entry.LastSeen {
				entry.LastSeen = txn.Date
			}
		}
	}

	report := make([]UnmappedProduct, 0, len(byName))
	for _, name := range order {
		entry := byName[name]
		entry.TotalRevenue = common.Round(entry.TotalRevenue, 2)
		if totalRevenue > 0 {
			entry.RevenuePercent = common.Round(entry.TotalRevenue/totalRevenue*100, 2)
		}
		report = append(report, *entry)
	}

	sort.SliceStable(report, func(i, j int) bool {
		return report[i].TotalRevenue > report[j].TotalRevenue
	})
	return report
}
