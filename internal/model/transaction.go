package model

import "time"

// MappingTier records which resolution strategy matched a raw product name
// against the catalog.
type MappingTier string

const (
	TierDirect   MappingTier = "direct"
	TierFamily   MappingTier = "family"
	TierUnmapped MappingTier = "unmapped"
)

// UnmappedSKU is the sentinel master SKU assigned to products with no
// catalog match.
const UnmappedSKU = "UNMAPPED"

// Transaction is the canonical, fully-enriched sale record emitted by the
// reconciliation pipeline. It is created once per surviving raw row and
// never mutated afterwards.
type Transaction struct {
	// Timestamp is the parsed sale time; zero when the source timestamp
	// was unparseable (persisted as NULL).
	Timestamp time.Time
	// Date is the sale date in YYYY-MM-DD form, empty when unknown.
	Date string
	// DedupKey uniquely identifies the underlying physical sale across
	// exports and re-imports.
	DedupKey string
	// Location is the canonical display location.
	Location string

	MasterSKU     string
	MasterName    string
	ProductFamily string
	Type          string

	Revenue            float64
	Cost               float64
	Profit             float64
	GrossMarginPercent float64
	Quantity           int

	MappingTier   MappingTier
	Source        SourceSystem
	PaymentMethod string
}

// HasTimestamp reports whether the source timestamp parsed successfully.
func (t *Transaction) HasTimestamp() bool {
	return !t.Timestamp.IsZero()
}
