package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// MockGateway is a test double for the upstream gateway. It returns
// predefined data instead of making network calls and counts invocations.
type MockGateway struct {
	// HistoryPoints is returned from FetchHistory when HistoryErr is nil.
	HistoryPoints []model.RawPricePoint
	// HistoryErr is returned from FetchHistory when set.
	HistoryErr error
	// Rate is returned from FetchExchangeRate when RateErr is nil.
	Rate model.ExchangeRate
	// RateErr is returned from FetchExchangeRate when set.
	RateErr error

	// HistoryCalls counts FetchHistory invocations.
	HistoryCalls int
	// RateCalls counts FetchExchangeRate invocations.
	RateCalls int
}

// NewMockGateway creates a mock with 5 days of history and a rate valid for
// an hour.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		HistoryPoints: MakeRawPoints(5, 4900),
		Rate:          MakeRate(144.5737, time.Hour),
	}
}

// FetchHistory returns the configured points or error.
func (m *MockGateway) FetchHistory(_ context.Context, _ model.MetalSymbol, _, _ time.Time) ([]model.RawPricePoint, error) {
	m.HistoryCalls++
	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	return m.HistoryPoints, nil
}

// FetchExchangeRate returns the configured rate or error.
func (m *MockGateway) FetchExchangeRate(_ context.Context) (model.ExchangeRate, error) {
	m.RateCalls++
	if m.RateErr != nil {
		return model.ExchangeRate{}, m.RateErr
	}
	return m.Rate, nil
}

// WithHistoryError configures FetchHistory to fail.
func (m *MockGateway) WithHistoryError(err error) *MockGateway {
	m.HistoryErr = err
	return m
}

// WithRateError configures FetchExchangeRate to fail.
func (m *MockGateway) WithRateError(err error) *MockGateway {
	m.RateErr = err
	return m
}

// FailNHistoryGateway fails the first n FetchHistory calls, then succeeds.
type FailNHistoryGateway struct {
	MockGateway
	failures int
}

// NewFailNHistoryGateway creates a gateway whose first n history fetches fail.
func NewFailNHistoryGateway(n int) *FailNHistoryGateway {
	g := &FailNHistoryGateway{failures: n}
	g.HistoryPoints = MakeRawPoints(5, 4900)
	g.Rate = MakeRate(144.5737, time.Hour)
	return g
}

// FetchHistory fails until the configured number of failures is spent.
func (g *FailNHistoryGateway) FetchHistory(ctx context.Context, symbol model.MetalSymbol, from, to time.Time) ([]model.RawPricePoint, error) {
	if g.HistoryCalls < g.failures {
		g.HistoryCalls++
		return nil, fmt.Errorf("simulated upstream failure %d", g.HistoryCalls)
	}
	return g.MockGateway.FetchHistory(ctx, symbol, from, to)
}

// BlockingHistoryGateway parks every FetchHistory call until Release and
// counts invocations under a lock. Tests use it to pile up concurrent
// callers on an in-flight fetch and assert they coalesce.
type BlockingHistoryGateway struct {
	mu      sync.Mutex
	calls   int
	points  []model.RawPricePoint
	rate    model.ExchangeRate
	release chan struct{}
}

// NewBlockingHistoryGateway creates a gateway whose history fetches block
// until Release is called.
func NewBlockingHistoryGateway() *BlockingHistoryGateway {
	return &BlockingHistoryGateway{
		points:  MakeRawPoints(5, 4900),
		rate:    MakeRate(144.5737, time.Hour),
		release: make(chan struct{}),
	}
}

// FetchHistory records the call, then blocks until Release or context
// cancellation.
func (g *BlockingHistoryGateway) FetchHistory(ctx context.Context, _ model.MetalSymbol, _, _ time.Time) ([]model.RawPricePoint, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.points, nil
}

// FetchExchangeRate returns the fixed rate without blocking.
func (g *BlockingHistoryGateway) FetchExchangeRate(_ context.Context) (model.ExchangeRate, error) {
	return g.rate, nil
}

// Release unblocks all in-flight and future history fetches.
func (g *BlockingHistoryGateway) Release() {
	close(g.release)
}

// HistoryCalls returns how many times FetchHistory was invoked.
func (g *BlockingHistoryGateway) HistoryCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
