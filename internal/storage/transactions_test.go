package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartvending/vendledger/internal/model"
	"github.com/smartvending/vendledger/internal/service"
	"github.com/smartvending/vendledger/internal/testutil"
)

func sampleTransactions() []model.Transaction {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return []model.Transaction{
		{
			DedupKey:           "2026-01-15T10:00_21_cocacola169oz_2.5",
			Timestamp:          ts,
			Date:               "2026-01-15",
			Location:           "West Bank",
			MasterSKU:          "SKU001",
			MasterName:         "Coca Cola",
			ProductFamily:      "Beverage",
			Type:               "Beverage - Soda",
			Revenue:            2.50,
			Cost:               0.50,
			Quantity:           1,
			Profit:             2.00,
			GrossMarginPercent: 80.0,
			MappingTier:        model.TierDirect,
			Source:             model.SourceCantaloupe,
			PaymentMethod:      "Credit Card",
		},
		{
			DedupKey:    "2026-01-16T12:30_21_aliensoda_3",
			Timestamp:   ts.Add(26*time.Hour + 30*time.Minute),
			Date:        "2026-01-16",
			Location:    "West Bank",
			MasterSKU:   model.UnmappedSKU,
			MasterName:  "Alien Soda",
			Revenue:     3.00,
			Quantity:    1,
			Profit:      3.00,
			MappingTier: model.TierUnmapped,
			Source:      model.SourceNayax,
		},
		{
			DedupKey:    "unknown_4_mysterysnack_1",
			Location:    "Lobby",
			MasterSKU:   "SKU009",
			MasterName:  "Mystery Snack",
			Revenue:     1.00,
			Cost:        0.40,
			Quantity:    1,
			Profit:      0.60,
			MappingTier: model.TierDirect,
			Source:      model.SourceHahaAI,
		},
	}
}

func TestSaveTransactionsIdempotent(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	inserted, err := store.SaveTransactions(ctx, sampleTransactions())
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// Re-importing the same export inserts nothing new.
	inserted, err = store.SaveTransactions(ctx, sampleTransactions())
	require.NoError(t, err)
	assert.Zero(t, inserted)

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveTransactionsRejectsEmptyDedupKey(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := store.SaveTransactions(context.Background(), []model.Transaction{{MasterSKU: "SKU001"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dedup key")
}

func TestSaveTransactionsRoundTrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, sampleTransactions())
	require.NoError(t, err)

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byKey := make(map[string]model.Transaction)
	for _, txn := range all {
		byKey[txn.DedupKey] = txn
	}

	got := byKey["2026-01-15T10:00_21_cocacola169oz_2.5"]
	assert.Equal(t, "Coca Cola", got.MasterName)
	assert.Equal(t, "West Bank", got.Location)
	assert.Equal(t, "2026-01-15", got.Date)
	assert.InDelta(t, 2.50, got.Revenue, 1e-9)
	assert.InDelta(t, 80.0, got.GrossMarginPercent, 1e-9)
	assert.Equal(t, model.TierDirect, got.MappingTier)
	assert.Equal(t, model.SourceCantaloupe, got.Source)
	assert.Equal(t, "Credit Card", got.PaymentMethod)
	assert.True(t, got.HasTimestamp())

	// Nullable fields survive as zero values.
	dateless := byKey["unknown_4_mysterysnack_1"]
	assert.False(t, dateless.HasTimestamp())
	assert.Empty(t, dateless.Date)
	assert.Empty(t, dateless.ProductFamily)
	assert.Empty(t, dateless.PaymentMethod)
}

func TestGetTransactionsFilters(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, sampleTransactions())
	require.NoError(t, err)

	t.Run("by source", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{Source: model.SourceNayax})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Alien Soda", got[0].MasterName)
	})

	t.Run("by tier", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{Tier: model.TierUnmapped})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, model.UnmappedSKU, got[0].MasterSKU)
	})

	t.Run("by location", func(t *testing.T) {
		got, err := store.GetTransactions(ctx, service.TransactionFilter{Location: "West Bank"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by date range", func(t *testing.T) {
		start := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
		got, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2026-01-16", got[0].Date)
	})

	t.Run("limit and offset", func(t *testing.T) {
		first, err := store.GetTransactions(ctx, service.TransactionFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, first, 1)

		second, err := store.GetTransactions(ctx, service.TransactionFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.NotEqual(t, first[0].DedupKey, second[0].DedupKey)
	})
}

func TestReplaceTransactions(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, sampleTransactions())
	require.NoError(t, err)

	replacement := []model.Transaction{
		{
			DedupKey:    "2026-02-01T08:00_9_water_1",
			Date:        "2026-02-01",
			Location:    "The Met",
			MasterSKU:   "SKU010",
			MasterName:  "Water",
			Revenue:     1.00,
			Quantity:    1,
			MappingTier: model.TierDirect,
			Source:      model.SourceNayax,
		},
	}
	require.NoError(t, store.ReplaceTransactions(ctx, replacement))

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Water", all[0].MasterName)
}

func TestReplaceTransactionsRollsBackOnBadRow(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, sampleTransactions())
	require.NoError(t, err)

	// The empty dedup key is rejected before the delete runs, so the
	// existing ledger survives intact.
	err = store.ReplaceTransactions(ctx, []model.Transaction{{MasterName: "bad"}})
	require.Error(t, err)

	all, err := store.GetTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetSummary(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	t.Run("empty ledger", func(t *testing.T) {
		summary, err := store.GetSummary(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.TotalTransactions)
		assert.Empty(t, summary.FirstDate)
		assert.Empty(t, summary.BySource)
	})

	_, err := store.SaveTransactions(ctx, sampleTransactions())
	require.NoError(t, err)

	t.Run("populated ledger", func(t *testing.T) {
		summary, err := store.GetSummary(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3, summary.TotalTransactions)
		assert.InDelta(t, 6.50, summary.TotalRevenue, 1e-9)
		assert.InDelta(t, 5.60, summary.TotalProfit, 1e-9)
		assert.Equal(t, "2026-01-15", summary.FirstDate)
		assert.Equal(t, "2026-01-16", summary.LastDate)

		require.Len(t, summary.BySource, 3)
		nayax := summary.BySource[model.SourceNayax]
		assert.Equal(t, 1, nayax.Count)
		assert.InDelta(t, 3.00, nayax.Revenue, 1e-9)
	})
}

func TestStorageCancelledContext(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.SaveTransactions(ctx, sampleTransactions())
	assert.Error(t, err)

	_, err = store.GetTransactions(ctx, service.TransactionFilter{})
	assert.Error(t, err)
}
