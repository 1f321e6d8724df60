package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
)

// MetalSymbol identifies a traded precious metal. It is parsed once at the
// API boundary and is never a free-form string in internal logic.
type MetalSymbol string

const (
	// Gold is the 24k gold spot symbol.
	Gold MetalSymbol = "GOLD"

	// Silver is the silver spot symbol.
	Silver MetalSymbol = "SILVER"
)

// AllMetals returns every supported metal in display order.
func AllMetals() []MetalSymbol {
	return []MetalSymbol{Gold, Silver}
}

// ParseMetalSymbol converts a request-supplied string into a MetalSymbol.
// Matching is case-insensitive; internal logic only ever sees the canonical
// uppercase form.
func ParseMetalSymbol(s string) (MetalSymbol, error) {
	switch MetalSymbol(strings.ToUpper(s)) {
	case Gold:
		return Gold, nil
	case Silver:
		return Silver, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidMetalSymbol, s)
	}
}

// Valid reports whether the symbol is one of the supported metals.
func (m MetalSymbol) Valid() bool {
	return m == Gold || m == Silver
}

// RawPricePoint is a single trading day as returned by the upstream history
// provider: a calendar day (no time component, UTC midnight) and the USD
// spot price per troy ounce. Upstream data may contain malformed or
// non-positive values; filtering is the reconciler's responsibility.
type RawPricePoint struct {
	Date            time.Time
	SpotUSDPerOunce float64
}

// DerivedPricePoint is a RawPricePoint converted into Nepal retail pricing.
// Within a series dates are strictly ascending with no duplicates, and the
// first point's PercentChange is always 0.
type DerivedPricePoint struct {
	Date            time.Time `json:"date"`
	SpotUSDPerOunce float64   `json:"spot_usd_per_ounce"`
	PricePerGramNPR int64     `json:"price_per_gram_npr"`
	PricePerTolaNPR int64     `json:"price_per_tola_npr"`
	PercentChange   float64   `json:"percent_change"`
}

// DateKey returns the canonical calendar-day key for the point.
func (p DerivedPricePoint) DateKey() string {
	return p.Date.UTC().Format("2006-01-02")
}

// MetalSeries is the converted trailing price history for one metal.
// A series is replaced wholesale on each successful refresh, never mutated
// in place, and is non-empty on a successful fetch.
type MetalSeries struct {
	Symbol    MetalSymbol         `json:"symbol"`
	Points    []DerivedPricePoint `json:"points"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// Age returns how long ago the series was fetched.
func (s MetalSeries) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// ExchangeRate is the USD to NPR conversion rate. ValidUntil is authoritative
// and supplied by the upstream provider; the cache never invents its own
// expiry. Exactly one rate is active system-wide at any instant.
type ExchangeRate struct {
	RateNPRPerUSD float64   `json:"rate_npr_per_usd"`
	ValidUntil    time.Time `json:"valid_until"`
}

// ValidAt reports whether the rate may still be used at the given instant.
func (r ExchangeRate) ValidAt(now time.Time) bool {
	return now.Before(r.ValidUntil)
}
