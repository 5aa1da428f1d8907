// Package location standardizes raw machine and location strings into
// canonical display locations.
package location

import (
	"regexp"
	"strings"

	"github.com/smartvending/vendledger/internal/catalog"
)

var (
	bracketPrefixRe  = regexp.MustCompile(`^\[\d+\]\s*`)
	trailingDigitsRe = regexp.MustCompile(`\s*\d{4}$`)
	bracketTextRe    = regexp.MustCompile(`\[.*?\]\s*(.+)`)
)

// Unknown is the display location when neither the location nor the
// machine string yields anything usable.
const Unknown = "Unknown"

// Normalizer resolves raw location strings against the location directory
// with heuristic fallbacks for unmapped machines.
type Normalizer struct {
	directory *catalog.Locations
}

// NewNormalizer creates a Normalizer over the given directory.
func NewNormalizer(directory *catalog.Locations) *Normalizer {
	if directory == nil {
		directory = catalog.NewLocations(nil)
	}
	return &Normalizer{directory: directory}
}

// Normalize maps a raw location and machine pair to a display location.
// Resolution order: directory match on the location, directory match on
// the machine, then cleanup of the machine string (bracket prefix and
// trailing 4-digit machine number removed).
func (n *Normalizer) Normalize(rawLocation, rawMachine string) string {
	locationStr := strings.TrimSpace(rawLocation)
	machineStr := strings.TrimSpace(rawMachine)

	if locationStr == "" {
		locationStr = backfillFromMachine(machineStr)
	}

	if display, ok := n.directory.Lookup(locationStr); ok {
		return display
	}
	if display, ok := n.directory.Lookup(machineStr); ok {
		return display
	}

	cleaned := bracketPrefixRe.ReplaceAllString(machineStr, "")
	cleaned = trailingDigitsRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned != "" {
		return cleaned
	}
	return locationStr
}

// backfillFromMachine recovers a location from a machine string such as
// "[4] The Bowen Freezer" when the export left the location blank.
func backfillFromMachine(machine string) string {
	if m := bracketTextRe.FindStringSubmatch(machine); m != nil {
		return strings.TrimSpace(m[1])
	}
	return Unknown
}
