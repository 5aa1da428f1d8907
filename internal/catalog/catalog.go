// Package catalog holds the master product catalog and location directory
// used to map raw POS product names and machines onto canonical entries.
package catalog

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/model"
)

// Entry is one master product in the catalog.
type Entry struct {
	MasterSKU     string
	MasterName    string
	ProductFamily string
	Type          string
	// UnitCost is the per-unit cost in dollars, already cleaned of
	// currency symbols. Never negative.
	UnitCost float64
	// Aliases maps each source system to the raw product name that POS
	// uses for this product. Absent systems have no alias.
	Aliases map[model.SourceSystem]string
}

// MappedProduct is the result of resolving a raw product name.
type MappedProduct struct {
	MasterSKU     string
	MasterName    string
	ProductFamily string
	Type          string
	UnitCost      float64
	Tier          model.MappingTier
}

// familyEntry is the synthesized pseudo-entry for a product family.
type familyEntry struct {
	avgCost float64
	typ     string
}

// Stats summarizes catalog data quality.
type Stats struct {
	Entries          int
	Families         int
	Aliases          int
	DuplicateAliases int
	ZeroCostEntries  int
}

// Catalog is an immutable lookup structure built once per pipeline run.
// Direct lookups are case-sensitive exact matches against every system's
// alias and the master name itself; family lookups match the raw name
// against a product family and carry the family's mean unit cost.
type Catalog struct {
	entries  []Entry
	direct   map[string]*Entry
	families map[string]familyEntry
	stats    Stats
	// substring enables a secondary containment pass after exact matching.
	substring bool
}

// Option configures catalog construction.
type Option func(*Catalog)

// WithSubstringFallback enables a containment pass when exact matching
// fails. Off by default because short names like "Cola" can match several
// unrelated products.
func WithSubstringFallback() Option {
	return func(c *Catalog) {
		c.substring = true
	}
}

// New builds a Catalog from its entries. Later entries never displace an
// earlier entry's alias; duplicate aliases are counted and logged as a
// data-quality warning.
func New(entries []Entry, opts ...Option) *Catalog {
	c := &Catalog{
		entries:  entries,
		direct:   make(map[string]*Entry),
		families: make(map[string]familyEntry),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.stats.Entries = len(entries)

	for i := range entries {
		e := &entries[i]
		if e.UnitCost <= 0 {
			c.stats.ZeroCostEntries++
		}

		names := make([]string, 0, len(e.Aliases)+1)
		if e.MasterName != "" {
			names = append(names, e.MasterName)
		}
		// Check every system's alias, not only the row's own source, so
		// mis-tagged exports still resolve.
		for _, src := range model.AllSources() {
			if alias := e.Aliases[src]; alias != "" {
				names = append(names, alias)
			}
		}
		for _, name := range names {
			c.stats.Aliases++
			if existing, ok := c.direct[name]; ok {
				if existing.MasterSKU != e.MasterSKU {
					c.stats.DuplicateAliases++
					common.LogWarn("ambiguous catalog alias, keeping first entry", common.Fields{
						"alias":    name,
						"kept":     existing.MasterSKU,
						"ignored":  e.MasterSKU,
						"resolved": "catalog order",
					})
				}
				continue
			}
			c.direct[name] = e
		}
	}

	c.buildFamilies()
	return c
}

// buildFamilies computes the per-family mean cost over members with a
// positive cost and the modal type (first-seen breaks ties).
func (c *Catalog) buildFamilies() {
	type familyAgg struct {
		costSum    float64
		costCount  int
		typeCounts map[string]int
		typeOrder  []string
	}

	aggs := make(map[string]*familyAgg)
	var order []string

	for i := range c.entries {
		e := &c.entries[i]
		if e.ProductFamily == "" {
			continue
		}
		agg, ok := aggs[e.ProductFamily]
		if !ok {
			agg = &familyAgg{typeCounts: make(map[string]int)}
			aggs[e.ProductFamily] = agg
			order = append(order, e.ProductFamily)
		}
		if e.UnitCost > 0 {
			agg.costSum += e.UnitCost
			agg.costCount++
		}
		if e.Type != "" {
			if _, seen := agg.typeCounts[e.Type]; !seen {
				agg.typeOrder = append(agg.typeOrder, e.Type)
			}
			agg.typeCounts[e.Type]++
		}
	}

	for _, family := range order {
		agg := aggs[family]
		avg := 0.0
		if agg.costCount > 0 {
			avg = common.Round(agg.costSum/float64(agg.costCount), 2)
		}
		typ := "Unknown"
		best := 0
		for _, t := range agg.typeOrder {
			if agg.typeCounts[t] > best {
				best = agg.typeCounts[t]
				typ = t
			}
		}
		c.families[family] = familyEntry{avgCost: avg, typ: typ}
	}
	c.stats.Families = len(c.families)
}

// Map resolves a raw product name using the three-tier lookup:
// direct alias, product family, then the UNMAPPED sentinel.
func (c *Catalog) Map(rawProduct string) MappedProduct {
	product := strings.TrimSpace(rawProduct)

	if e, ok := c.direct[product]; ok {
		return directResult(e)
	}

	if fe, ok := c.families[product]; ok {
		return MappedProduct{
			MasterSKU:     FamilySKU(product),
			MasterName:    product,
			ProductFamily: product,
			Type:          fe.typ,
			UnitCost:      fe.avgCost,
			Tier:          model.TierFamily,
		}
	}

	if c.substring {
		if e, ok := c.containsMatch(product); ok {
			return directResult(e)
		}
	}

	return MappedProduct{
		MasterSKU:     model.UnmappedSKU,
		MasterName:    product,
		ProductFamily: "Unmapped",
		Type:          "Unknown",
		UnitCost:      0,
		Tier:          model.TierUnmapped,
	}
}

func directResult(e *Entry) MappedProduct {
	return MappedProduct{
		MasterSKU:     e.MasterSKU,
		MasterName:    e.MasterName,
		ProductFamily: e.ProductFamily,
		Type:          e.Type,
		UnitCost:      e.UnitCost,
		Tier:          model.TierDirect,
	}
}

// containsMatch is the opt-in secondary pass: the raw name containing, or
// contained in, a known alias counts as a match. Aliases are tried in
// sorted order so results are deterministic.
func (c *Catalog) containsMatch(product string) (*Entry, bool) {
	if product == "" {
		return nil, false
	}
	lower := strings.ToLower(product)
	aliases := make([]string, 0, len(c.direct))
	for alias := range c.direct {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		aliasLower := strings.ToLower(alias)
		if strings.Contains(lower, aliasLower) || strings.Contains(aliasLower, lower) {
			slog.Debug("substring fallback matched product",
				"product", product,
				"alias", alias)
			return c.direct[alias], true
		}
	}
	return nil, false
}

// FamilySKU synthesizes the pseudo-SKU for a family-tier match.
func FamilySKU(family string) string {
	return "FAMILY_" + strings.ReplaceAll(strings.ToUpper(family), " ", "_")
}

// Entries returns the catalog entries in load order.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Stats returns data-quality counters gathered while building the catalog.
func (c *Catalog) Stats() Stats {
	return c.stats
}
