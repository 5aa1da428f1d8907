package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartvending/vendledger/internal/cli"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the product catalog",
		Long: `Load the product catalog, report its size and data-quality issues, and
optionally try mapping a product name the way an import would.

Examples:
  # Data quality check
  vendledger catalog --catalog products.xlsx

  # See what tier a raw POS name maps to
  vendledger catalog --lookup "Coca Cola 16.9oz"`,
		RunE: runCatalog,
	}

	cmd.Flags().String("catalog", "", "product catalog file (csv or xlsx)")
	cmd.Flags().String("lookup", "", "map a raw product name and show the result")
	cmd.Flags().Bool("substring-match", false, "allow substring containment in product mapping")

	return cmd
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	lookup, _ := cmd.Flags().GetString("lookup")
	substring, _ := cmd.Flags().GetBool("substring-match")

	tables, err := loadMappingTables(catalogPath, "", "", substring)
	if err != nil {
		return err
	}

	stats := tables.catalog.Stats()

	fmt.Println(cli.TitleStyle.Render("Catalog"))
	fmt.Printf("  Entries:            %d\n", stats.Entries)
	fmt.Printf("  Product families:   %d\n", stats.Families)
	fmt.Printf("  Aliases:            %d\n", stats.Aliases)
	if stats.DuplicateAliases > 0 {
		fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("  Duplicate aliases:  %d (first catalog entry wins)", stats.DuplicateAliases)))
	}
	if stats.ZeroCostEntries > 0 {
		fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("  Zero-cost entries:  %d (profit will equal revenue)", stats.ZeroCostEntries)))
	}

	if lookup == "" {
		return nil
	}

	mapped := tables.catalog.Map(lookup)
	fmt.Println()
	fmt.Println(cli.BoldStyle.Render(fmt.Sprintf("%q", lookup)))
	fmt.Printf("  Tier:      %s\n", mapped.Tier)
	fmt.Printf("  SKU:       %s\n", mapped.MasterSKU)
	fmt.Printf("  Name:      %s\n", mapped.MasterName)
	if mapped.ProductFamily != "" {
		fmt.Printf("  Family:    %s\n", mapped.ProductFamily)
	}
	fmt.Printf("  Unit cost: $%.2f\n", mapped.UnitCost)
	return nil
}
