package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartvending/vendledger/internal/model"
)

func testEntries() []Entry {
	return []Entry{
		{
			MasterSKU:     "SKU001",
			MasterName:    "Coca Cola",
			ProductFamily: "Soda",
			Type:          "Beverage",
			UnitCost:      0.50,
			Aliases: map[model.SourceSystem]string{
				model.SourceCantaloupe: "Coca Cola 16.9oz",
				model.SourceHahaAI:     "Coke",
			},
		},
		{
			MasterSKU:     "SKU002",
			MasterName:    "Pepsi",
			ProductFamily: "Soda",
			Type:          "Beverage",
			UnitCost:      0.60,
			Aliases: map[model.SourceSystem]string{
				model.SourceNayax: "Pepsi 20oz",
			},
		},
		{
			MasterSKU:     "SKU003",
			MasterName:    "Snickers",
			ProductFamily: "Candy",
			Type:          "Snack",
			UnitCost:      0.75,
			Aliases: map[model.SourceSystem]string{
				model.SourceCantaloupe: "Snickers Bar",
			},
		},
		{
			MasterSKU:     "SKU004",
			MasterName:    "Mystery Snack",
			ProductFamily: "Candy",
			Type:          "Snack",
			UnitCost:      0, // cost unknown, excluded from the family mean
		},
	}
}

func TestCatalogMapDirect(t *testing.T) {
	c := New(testEntries())

	tests := []struct {
		name    string
		product string
		wantSKU string
	}{
		{name: "cantaloupe alias", product: "Coca Cola 16.9oz", wantSKU: "SKU001"},
		{name: "alias from another system still resolves", product: "Coke", wantSKU: "SKU001"},
		{name: "master name itself", product: "Pepsi", wantSKU: "SKU002"},
		{name: "surrounding whitespace trimmed", product: "  Snickers Bar  ", wantSKU: "SKU003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Map(tt.product)

			assert.Equal(t, model.TierDirect, got.Tier)
			assert.Equal(t, tt.wantSKU, got.MasterSKU)
		})
	}
}

func TestCatalogMapFamily(t *testing.T) {
	c := New(testEntries())

	got := c.Map("Soda")

	assert.Equal(t, model.TierFamily, got.Tier)
	assert.Equal(t, "FAMILY_SODA", got.MasterSKU)
	assert.Equal(t, "Soda", got.ProductFamily)
	assert.Equal(t, "Beverage", got.Type)
	// Mean of 0.50 and 0.60.
	assert.InDelta(t, 0.55, got.UnitCost, 1e-9)
}

func TestCatalogMapFamilySkipsZeroCostMembers(t *testing.T) {
	c := New(testEntries())

	got := c.Map("Candy")

	assert.Equal(t, model.TierFamily, got.Tier)
	// SKU004 has cost 0 and must not drag the mean down.
	assert.InDelta(t, 0.75, got.UnitCost, 1e-9)
}

func TestCatalogMapUnmapped(t *testing.T) {
	c := New(testEntries())

	got := c.Map("Totally New Product")

	assert.Equal(t, model.TierUnmapped, got.Tier)
	assert.Equal(t, model.UnmappedSKU, got.MasterSKU)
	assert.Equal(t, "Totally New Product", got.MasterName)
	assert.Equal(t, "Unmapped", got.ProductFamily)
	assert.Zero(t, got.UnitCost)
}

func TestCatalogMapCaseSensitive(t *testing.T) {
	c := New(testEntries())

	// Exact matching is case-sensitive; only the substring pass folds case.
	assert.Equal(t, model.TierUnmapped, c.Map("coca cola 16.9oz").Tier)
}

func TestCatalogSubstringFallback(t *testing.T) {
	t.Run("off by default", func(t *testing.T) {
		c := New(testEntries())

		got := c.Map("NEW Coca Cola 16.9oz Promo")
		assert.Equal(t, model.TierUnmapped, got.Tier)
	})

	t.Run("raw name containing an alias", func(t *testing.T) {
		c := New(testEntries(), WithSubstringFallback())

		got := c.Map("NEW Coca Cola 16.9oz Promo")
		assert.Equal(t, model.TierDirect, got.Tier)
		assert.Equal(t, "SKU001", got.MasterSKU)
	})

	t.Run("raw name contained in an alias", func(t *testing.T) {
		c := New(testEntries(), WithSubstringFallback())

		got := c.Map("snickers bar")
		assert.Equal(t, model.TierDirect, got.Tier)
		assert.Equal(t, "SKU003", got.MasterSKU)
	})
}

func TestCatalogDuplicateAliasKeepsFirst(t *testing.T) {
	entries := testEntries()
	entries = append(entries, Entry{
		MasterSKU:  "SKU099",
		MasterName: "Impostor",
		UnitCost:   9.99,
		Aliases: map[model.SourceSystem]string{
			model.SourceCantaloupe: "Coca Cola 16.9oz",
		},
	})
	c := New(entries)

	got := c.Map("Coca Cola 16.9oz")

	assert.Equal(t, "SKU001", got.MasterSKU)
	assert.Equal(t, 1, c.Stats().DuplicateAliases)
}

func TestCatalogStats(t *testing.T) {
	c := New(testEntries())
	stats := c.Stats()

	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 2, stats.Families)
	// 4 master names + 4 aliases.
	assert.Equal(t, 8, stats.Aliases)
	assert.Equal(t, 1, stats.ZeroCostEntries)
	assert.Zero(t, stats.DuplicateAliases)
}

func TestFamilySKU(t *testing.T) {
	assert.Equal(t, "FAMILY_SODA", FamilySKU("Soda"))
	assert.Equal(t, "FAMILY_LEGENDARY_VARIETY", FamilySKU("Legendary Variety"))
}
