package model

import (
	"fmt"
	"strings"
)

// SourceSystem identifies which POS platform produced an export.
type SourceSystem string

// The three POS platforms deployed across the fleet. Each exports
// transactions in its own schema with its own product naming.
const (
	SourceHahaAI     SourceSystem = "Haha_AI"
	SourceNayax      SourceSystem = "Nayax"
	SourceCantaloupe SourceSystem = "Cantaloupe"
)

// AllSources lists every supported source system in a stable order.
func AllSources() []SourceSystem {
	return []SourceSystem{SourceHahaAI, SourceNayax, SourceCantaloupe}
}

func (s SourceSystem) String() string {
	return string(s)
}

// ParseSourceSystem converts a string to a SourceSystem.
func ParseSourceSystem(s string) (SourceSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "haha_ai", "haha ai", "hahaai", "haha":
		return SourceHahaAI, nil
	case "nayax":
		return SourceNayax, nil
	case "cantaloupe", "usat":
		return SourceCantaloupe, nil
	default:
		return "", fmt.Errorf("unknown source system: %q", s)
	}
}
