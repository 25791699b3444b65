package model

import (
	"fmt"
	"strings"
)

// DefaultQuoteAsset is assumed when an instrument is given in bare "BASE" form.
const DefaultQuoteAsset = "USD"

// Instrument is a tradable pair of a base asset against a quote asset.
type Instrument struct {
	Base  string // e.g. "BTC"
	Quote string // e.g. "USD"
}

// ParseInstrument accepts either "BASE-QUOTE" or "BASE" and returns the canonical form.
func ParseInstrument(s string) (Instrument, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Instrument{}, fmt.Errorf("empty instrument")
	}

	parts := strings.Split(s, "-")
	switch len(parts) {
	case 1:
		return Instrument{Base: parts[0], Quote: DefaultQuoteAsset}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Instrument{}, fmt.Errorf("malformed instrument %q", s)
		}
		return Instrument{Base: parts[0], Quote: parts[1]}, nil
	default:
		return Instrument{}, fmt.Errorf("malformed instrument %q", s)
	}
}

// MustParseInstrument is ParseInstrument for constants and tests.
func MustParseInstrument(s string) Instrument {
	inst, err := ParseInstrument(s)
	if err != nil {
		panic(err)
	}
	return inst
}

// Symbol returns the "BASE-QUOTE" form used by the venue.
func (i Instrument) Symbol() string {
	return i.Base + "-" + i.Quote
}

// Asset returns the bare "BASE" form used by holdings.
func (i Instrument) Asset() string {
	return i.Base
}

func (i Instrument) String() string {
	return i.Symbol()
}
