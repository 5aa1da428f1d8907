// Package dedup detects re-occurrences of the same physical sale via a
// composite fingerprint built from row fields no POS shares an ID for.
package dedup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/smartvending/vendledger/internal/common"
	"github.com/smartvending/vendledger/internal/model"
)

// Mode selects how keys are generated for a run.
type Mode int

const (
	// ModeMerge produces true composite keys: re-imports of the same sale
	// collapse to one record and re-running is safe.
	ModeMerge Mode = iota
	// ModeInsertAll appends the row ordinal so every row keeps a unique
	// key. Used only when the caller has already cleared prior data and
	// wants strict 1:1 row preservation.
	ModeInsertAll
)

var (
	bracketIDRe    = regexp.MustCompile(`\[(\d+)\]`)
	nonAlphaNumRe  = regexp.MustCompile(`[^a-z0-9]`)
	unknownTimeKey = "unknown"
)

// Key computes the composite fingerprint for a raw sale. The timestamp is
// truncated to the minute: export timestamps are not sub-minute-accurate
// across systems, so finer keys would under-deduplicate. The source system
// is deliberately excluded so cross-file re-imports of one sale collapse.
func Key(sale model.RawSale) string {
	ts := unknownTimeKey
	if !sale.Timestamp.IsZero() {
		ts = sale.Timestamp.Format("2006-01-02T15:04")
	}

	return fmt.Sprintf("%s_%s_%s_%s",
		ts,
		machineID(sale.Machine),
		normalizeProduct(sale.Product),
		formatAmount(sale.Amount))
}

// KeyWithOrdinal appends the row's position for insert-all semantics.
func KeyWithOrdinal(sale model.RawSale, ordinal int) string {
	return fmt.Sprintf("%s_%d", Key(sale), ordinal)
}

// machineID extracts a stable machine identifier: the bracketed device
// number when present, otherwise the lowercased alphanumeric remainder.
func machineID(machine string) string {
	machine = strings.TrimSpace(machine)
	if m := bracketIDRe.FindStringSubmatch(machine); m != nil {
		return m[1]
	}
	return nonAlphaNumRe.ReplaceAllString(strings.ToLower(machine), "")
}

func normalizeProduct(product string) string {
	return nonAlphaNumRe.ReplaceAllString(strings.ToLower(product), "")
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(common.Round(amount, 2), 'f', -1, 64)
}

// Deduplicate drops rows whose key repeats an earlier row's key, keeping
// first-seen order. In ModeInsertAll every row survives because keys carry
// the ordinal.
func Deduplicate(sales []model.RawSale, mode Mode) (kept []model.RawSale, keys []string, removed int) {
	kept = make([]model.RawSale, 0, len(sales))
	keys = make([]string, 0, len(sales))
	seen := make(map[string]bool, len(sales))

	for i, sale := range sales {
		var key string
		switch mode {
		case ModeInsertAll:
			key = KeyWithOrdinal(sale, i)
		default:
			key = Key(sale)
		}
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, sale)
		keys = append(keys, key)
	}
	return kept, keys, removed
}
