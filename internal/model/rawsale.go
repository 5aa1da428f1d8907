package model

import "time"

// RawSale is a single sale row in the common intermediate shape shared by
// all parsers. It exists only between parsing and pipeline processing and
// is never persisted.
type RawSale struct {
	// Timestamp is the parsed sale time; zero when RawTimestamp could not
	// be parsed.
	Timestamp time.Time
	// RawTimestamp is the timestamp cell exactly as exported.
	RawTimestamp string
	// Machine is the raw machine identifier, e.g. "[21] West Bank 3743".
	Machine string
	// Location is the raw location string; may be blank for sources that
	// only report a machine.
	Location string
	// Product is the raw product name as the POS reported it.
	Product string
	// PaymentMethod is the tender as reported or inferred; may be blank.
	PaymentMethod string
	Source        SourceSystem
	Quantity      float64
	// Amount is the sale total in dollars as parsed, never fabricated.
	Amount float64
}
