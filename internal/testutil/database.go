// Package testutil provides helpers for tests that need a real storage
// backend or synthetic mapping tables.
package testutil

import (
	"context"
	"testing"

	"github.com/smartvending/vendledger/internal/catalog"
	"github.com/smartvending/vendledger/internal/model"
	"github.com/smartvending/vendledger/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite store and registers its
// cleanup with the test.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return store
}

// TestCatalog builds a small synthetic catalog covering all three mapping
// tiers: two direct beverage SKUs, a candy SKU, and a one-member family.
func TestCatalog(opts ...catalog.Option) *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{
			MasterSKU:     "SKU001",
			MasterName:    "Coca Cola",
			ProductFamily: "Beverage",
			Type:          "Beverage - Soda",
			UnitCost:      0.50,
			Aliases: map[model.SourceSystem]string{
				model.SourceCantaloupe: "Coca Cola 16.9oz",
				model.SourceHahaAI:     "Coke",
			},
		},
		{
			MasterSKU:     "SKU002",
			MasterName:    "Pepsi",
			ProductFamily: "Beverage",
			Type:          "Beverage - Soda",
			UnitCost:      0.60,
			Aliases: map[model.SourceSystem]string{
				model.SourceCantaloupe: "Pepsi 20oz",
				model.SourceNayax:      "Pepsi Cola",
			},
		},
		{
			MasterSKU:     "SKU003",
			MasterName:    "Snickers",
			ProductFamily: "Candy",
			Type:          "Snack - Candy",
			UnitCost:      0.75,
			Aliases: map[model.SourceSystem]string{
				model.SourceHahaAI: "Snickers Bar",
			},
		},
		{
			MasterSKU:     "SKU004",
			MasterName:    "Legendary Bar",
			ProductFamily: "Legendary Variety",
			Type:          "Snack - Energy Bar",
			UnitCost:      1.00,
			Aliases:       map[model.SourceSystem]string{},
		},
	}, opts...)
}

// TestLocations builds a small synthetic location directory.
func TestLocations() *catalog.Locations {
	return catalog.NewLocations(map[string]string{
		"[21] West Bank 3743": "West Bank",
		"The Met":             "The Met",
	})
}
