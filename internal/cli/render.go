package cli

import (
	"fmt"
	"strings"

	"github.com/smartvending/vendledger/internal/pipeline"
	"github.com/smartvending/vendledger/internal/service"
)

// RenderRunStats formats one pipeline run for the terminal.
func RenderRunStats(stats pipeline.RunStats) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("📄 %s (%s)", stats.Filename, stats.Source)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Raw rows:            %d\n", stats.RawCount)
	fmt.Fprintf(&b, "  Duplicates removed:  %d\n", stats.DuplicatesRemoved)
	fmt.Fprintf(&b, "  Direct mapped:       %d\n", stats.DirectMapped)
	fmt.Fprintf(&b, "  Family mapped:       %d\n", stats.FamilyMapped)
	fmt.Fprintf(&b, "  Unmapped:            %d\n", stats.Unmapped)
	fmt.Fprintf(&b, "  Coverage:            %.1f%%\n", stats.CoveragePercent)
	fmt.Fprintf(&b, "  Revenue:             $%.2f\n", stats.TotalRevenue)
	fmt.Fprintf(&b, "  Profit:              $%.2f\n", stats.TotalProfit)
	if stats.UnmappedRevenue > 0 {
		b.WriteString(WarningStyle.Render(fmt.Sprintf("  Unmapped revenue:    $%.2f", stats.UnmappedRevenue)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderUnmappedReport formats the unmapped-products report as an aligned
// table sorted by revenue.
func RenderUnmappedReport(report []pipeline.UnmappedProduct) string {
	if len(report) == 0 {
		return SuccessStyle.Render("✓ Every product mapped to the catalog.") + "\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Unmapped products"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %-40s %12s %8s %12s %12s %8s\n",
		"PRODUCT", "REVENUE", "COUNT", "FIRST SEEN", "LAST SEEN", "% REV")
	for _, p := range report {
		name := p.ProductName
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(&b, "  %-40s %12.2f %8d %12s %12s %7.2f%%\n",
			name, p.TotalRevenue, p.TransactionCount, p.FirstSeen, p.LastSeen, p.RevenuePercent)
	}
	return b.String()
}

// RenderSummary formats the stored-ledger summary.
func RenderSummary(summary *service.Summary) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Ledger summary"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Transactions:  %d\n", summary.TotalTransactions)
	fmt.Fprintf(&b, "  Revenue:       $%.2f\n", summary.TotalRevenue)
	fmt.Fprintf(&b, "  Profit:        $%.2f\n", summary.TotalProfit)
	if summary.FirstDate != "" {
		fmt.Fprintf(&b, "  Date range:    %s to %s\n", summary.FirstDate, summary.LastDate)
	}
	if len(summary.BySource) > 0 {
		b.WriteString(SubtleStyle.Render("  By source:"))
		b.WriteString("\n")
		for source, ss := range summary.BySource {
			fmt.Fprintf(&b, "    %-12s %6d rows  $%.2f\n", source, ss.Count, ss.Revenue)
		}
	}
	return b.String()
}
