package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartvending/vendledger/internal/model"
)

func TestKey(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 0, 27, 0, time.UTC)

	tests := []struct {
		name string
		sale model.RawSale
		want string
	}{
		{
			name: "bracketed machine number",
			sale: model.RawSale{
				Timestamp: ts,
				Machine:   "[21] West Bank 3743",
				Product:   "Coca Cola 16.9oz",
				Amount:    2.50,
			},
			want: "2026-01-15T10:00_21_cocacola169oz_2.5",
		},
		{
			name: "no brackets falls back to lowercase alphanumeric machine",
			sale: model.RawSale{
				Timestamp: ts,
				Machine:   "The Met Kiosk",
				Product:   "Pepsi",
				Amount:    1.75,
			},
			want: "2026-01-15T10:00_themetkiosk_pepsi_1.75",
		},
		{
			name: "zero timestamp uses unknown",
			sale: model.RawSale{
				Machine: "[4] Bowen",
				Product: "Snickers Bar",
				Amount:  1,
			},
			want: "unknown_4_snickersbar_1",
		},
		{
			name: "amount rounded to cents",
			sale: model.RawSale{
				Timestamp: ts,
				Machine:   "[21] West Bank",
				Product:   "Chips",
				Amount:    2.499999,
			},
			want: "2026-01-15T10:00_21_chips_2.5",
		},
		{
			name: "whole dollar amount has no trailing zeros",
			sale: model.RawSale{
				Timestamp: ts,
				Machine:   "[21] West Bank",
				Product:   "Water",
				Amount:    2.00,
			},
			want: "2026-01-15T10:00_21_water_2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.sale))
		})
	}
}

func TestKeyTruncatesToMinute(t *testing.T) {
	base := model.RawSale{Machine: "[21] West Bank", Product: "Coke", Amount: 2.5}

	a := base
	a.Timestamp = time.Date(2026, 1, 15, 10, 0, 27, 0, time.UTC)
	b := base
	b.Timestamp = time.Date(2026, 1, 15, 10, 0, 59, 0, time.UTC)
	c := base
	c.Timestamp = time.Date(2026, 1, 15, 10, 1, 0, 0, time.UTC)

	assert.Equal(t, Key(a), Key(b), "same minute should collide")
	assert.NotEqual(t, Key(a), Key(c), "different minute should not collide")
}

func TestKeyWithOrdinal(t *testing.T) {
	sale := model.RawSale{Machine: "[9] Lobby", Product: "Coke", Amount: 2}

	assert.Equal(t, Key(sale)+"_0", KeyWithOrdinal(sale, 0))
	assert.NotEqual(t, KeyWithOrdinal(sale, 0), KeyWithOrdinal(sale, 1))
}

func TestDeduplicate(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	dup := model.RawSale{Timestamp: ts, Machine: "[21] West Bank", Product: "Coke", Amount: 2.5}
	other := model.RawSale{Timestamp: ts, Machine: "[21] West Bank", Product: "Pepsi", Amount: 2.5}

	t.Run("merge collapses repeats keeping first-seen order", func(t *testing.T) {
		kept, keys, removed := Deduplicate([]model.RawSale{dup, other, dup, dup}, ModeMerge)

		assert.Len(t, kept, 2)
		assert.Equal(t, 2, removed)
		assert.Equal(t, "Coke", kept[0].Product)
		assert.Equal(t, "Pepsi", kept[1].Product)
		assert.Len(t, keys, 2)
	})

	t.Run("insert-all keeps every row", func(t *testing.T) {
		kept, keys, removed := Deduplicate([]model.RawSale{dup, dup, dup}, ModeInsertAll)

		assert.Len(t, kept, 3)
		assert.Zero(t, removed)
		assert.NotEqual(t, keys[0], keys[1])
		assert.NotEqual(t, keys[1], keys[2])
	})

	t.Run("empty input", func(t *testing.T) {
		kept, keys, removed := Deduplicate(nil, ModeMerge)

		assert.Empty(t, kept)
		assert.Empty(t, keys)
		assert.Zero(t, removed)
	})
}
