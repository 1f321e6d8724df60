package apperrors

import (
	"errors"
	"fmt"
)

// Upstream errors represent failures talking to the metal-history or
// exchange-rate providers. They fail the cycle for that data source only;
// last-known-good data is retained and surfaced with an error indicator.
var (
	// ErrUpstreamUnavailable indicates a network failure, timeout, or non-2xx
	// response after exhausting credential rotation.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrInvalidResponseShape indicates the upstream returned data that does
	// not parse into the expected record shape.
	ErrInvalidResponseShape = errors.New("upstream response has unexpected shape")

	// ErrEmptySeriesAfterFiltering indicates every raw point in a history
	// response was invalid. Treated as a fetch failure for that metal/cycle.
	ErrEmptySeriesAfterFiltering = errors.New("no valid price points after filtering")
)

// Cache errors represent missing or unreadable local cache entries.
// Corruption is recovered locally by discarding the entry; it is never
// surfaced to the user.
var (
	// ErrRateNotCached indicates no exchange rate has been persisted yet.
	ErrRateNotCached = errors.New("exchange rate not cached")

	// ErrSeriesNotCached indicates no series has been persisted for the metal.
	ErrSeriesNotCached = errors.New("metal series not cached")

	// ErrCredentialNotFound indicates no stored credentials for a provider.
	ErrCredentialNotFound = errors.New("provider credentials not found")
)

// Validation errors for request parameters.
var (
	// ErrInvalidMetalSymbol indicates a request named a metal that is not supported.
	ErrInvalidMetalSymbol = errors.New("invalid metal symbol")
)

// UpstreamStatusError carries the HTTP status code of a non-2xx upstream
// response so the gateway can decide whether rotating to the next credential
// is worthwhile (401/403/429) or pointless (anything else).
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Unwrap classifies every upstream status error as ErrUpstreamUnavailable.
func (e *UpstreamStatusError) Unwrap() error {
	return ErrUpstreamUnavailable
}
