// Package finance derives per-transaction profit metrics.
package finance

import "github.com/smartvending/vendledger/internal/common"

// Compute returns profit and gross margin for one sale. Profit is revenue
// minus extended cost, rounded to cents. Margin is a percentage rounded to
// one decimal place, and 0 whenever revenue is not positive so free vends
// and refunds never divide by zero.
func Compute(revenue, unitCost float64, quantity int) (profit, grossMarginPercent float64) {
	profit = common.Round(revenue-unitCost*float64(quantity), 2)
	if revenue <= 0 {
		return profit, 0
	}
	return profit, common.Round(profit/revenue*100, 1)
}
