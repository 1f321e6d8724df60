package model

import "time"

// SourceState is the refresh state of a single data source (one metal's
// history, or the exchange rate). FAILED is non-terminal: the next trigger
// re-attempts the fetch.
type SourceState string

const (
	StateIdle     SourceState = "IDLE"
	StateFetching SourceState = "FETCHING"
	StateReady    SourceState = "READY"
	StateFailed   SourceState = "FAILED"
)

// MetalSnapshot is the presentation contract for one metal: the current
// series (or last-known-good when the latest cycle failed), the refresh
// state, and a human-readable error message when state is FAILED.
type MetalSnapshot struct {
	Symbol          MetalSymbol  `json:"symbol"`
	State           SourceState  `json:"state"`
	Series          *MetalSeries `json:"series,omitempty"`
	LastError       string       `json:"last_error,omitempty"`
	LastRefreshedAt time.Time    `json:"last_refreshed_at"`
}

// RateSnapshot is the presentation contract for the exchange-rate source.
type RateSnapshot struct {
	State           SourceState   `json:"state"`
	Rate            *ExchangeRate `json:"rate,omitempty"`
	LastError       string        `json:"last_error,omitempty"`
	LastRefreshedAt time.Time     `json:"last_refreshed_at"`
}
