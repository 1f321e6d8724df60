package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// RefreshService is the refresh orchestrator. It tracks a small state
// machine per data source (IDLE → FETCHING → READY/FAILED), hydrates the
// caches on startup, runs a recurring forced refresh on a cron schedule,
// and serves the presentation snapshot.
//
// FAILED is non-terminal: the next trigger re-attempts the fetch, and the
// last successful data remains visible throughout. Failure of one metal or
// the exchange rate never blocks the other metal's refresh.
type RefreshService struct {
	history  *HistoryService
	rates    *RateService
	cron     *cron.Cron
	interval time.Duration

	mu         sync.RWMutex
	metals     map[model.MetalSymbol]*sourceStatus
	rateStatus sourceStatus
}

type sourceStatus struct {
	state           model.SourceState
	lastError       string
	lastRefreshedAt time.Time
}

// Overview is the full presentation contract: every metal's snapshot plus
// the active exchange rate.
type Overview struct {
	Metals []model.MetalSnapshot `json:"metals"`
	Rate   model.RateSnapshot    `json:"exchange_rate"`
}

// NewRefreshService creates a RefreshService refreshing at the given
// interval.
func NewRefreshService(history *HistoryService, rates *RateService, interval time.Duration) *RefreshService {
	metals := make(map[model.MetalSymbol]*sourceStatus, len(model.AllMetals()))
	for _, symbol := range model.AllMetals() {
		metals[symbol] = &sourceStatus{state: model.StateIdle}
	}
	return &RefreshService{
		history:  history,
		rates:    rates,
		cron:     cron.New(),
		interval: interval,
		metals:   metals,
	}
}

// Start hydrates both caches from the persisted store, kicks off an initial
// refresh for anything missing or stale, and registers the recurring forced
// refresh. The forced timer guarantees a maximum staleness bound independent
// of per-entry TTLs.
func (s *RefreshService) Start(ctx context.Context) error {
	s.hydrate()

	// Non-forced: metals hydrated with a still-fresh series are left alone,
	// anything else fetches immediately.
	go s.Refresh(ctx, false)

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.Refresh(context.Background(), true)
	}); err != nil {
		return fmt.Errorf("failed to register refresh schedule: %w", err)
	}
	s.cron.Start()
	log.Printf("Refresh scheduler started (every %s)", s.interval)

	return nil
}

// hydrate loads persisted data into memory and marks sources that have it
// READY. The refresh timestamps reflect when data was actually fetched: a
// hydrated series carries its FetchedAt, while the rate's timestamp stays
// zero until the first cycle records one.
func (s *RefreshService) hydrate() {
	s.rates.Hydrate()
	s.history.Hydrate()

	s.mu.Lock()
	for _, symbol := range model.AllMetals() {
		if series, ok := s.history.Cached(symbol); ok {
			s.metals[symbol].state = model.StateReady
			s.metals[symbol].lastRefreshedAt = series.FetchedAt
		}
	}
	if _, ok := s.rates.Cached(); ok {
		s.rateStatus.state = model.StateReady
	}
	s.mu.Unlock()
}

// Stop cancels the recurring refresh.
func (s *RefreshService) Stop() {
	s.cron.Stop()
	log.Println("Refresh scheduler stopped")
}

// Refresh runs one refresh cycle. The exchange rate is resolved once up
// front so both metals derive from the identical rate; each metal then
// refreshes independently, and a failure marks only that source FAILED
// while its last-known-good data stays visible.
func (s *RefreshService) Refresh(ctx context.Context, force bool) {
	s.setRateState(model.StateFetching, "")
	rate, rateErr := s.rates.GetRate(ctx)
	if rateErr != nil {
		log.Printf("Exchange rate refresh failed: %v", rateErr)
		s.setRateState(model.StateFailed, rateErr.Error())
	} else {
		s.setRateState(model.StateReady, "")
	}

	for _, symbol := range model.AllMetals() {
		s.setMetalState(symbol, model.StateFetching, "", time.Time{})

		var (
			series model.MetalSeries
			err    error
		)
		if rateErr == nil {
			// Pinning the cycle's rate keeps both metals on the identical
			// rate even when its validity window ends between their fetches.
			series, err = s.history.RefreshWithRate(ctx, symbol, rate, force)
		} else {
			// No usable rate this cycle; let each metal attempt its own
			// resolution so a recovered provider shortens the outage.
			series, err = s.history.GetOrFetch(ctx, symbol, force)
		}
		if err != nil {
			log.Printf("Refresh failed for %s: %v", symbol, err)
			s.setMetalState(symbol, model.StateFailed, err.Error(), time.Time{})
			continue
		}
		s.setMetalState(symbol, model.StateReady, "", series.FetchedAt)
	}
}

// Snapshot returns the presentation contract for every metal plus the
// exchange rate.
func (s *RefreshService) Snapshot() Overview {
	overview := Overview{
		Metals: make([]model.MetalSnapshot, 0, len(model.AllMetals())),
	}
	for _, symbol := range model.AllMetals() {
		overview.Metals = append(overview.Metals, s.MetalSnapshot(symbol))
	}

	s.mu.RLock()
	overview.Rate = model.RateSnapshot{
		State:           s.rateStatus.state,
		LastError:       s.rateStatus.lastError,
		LastRefreshedAt: s.rateStatus.lastRefreshedAt,
	}
	s.mu.RUnlock()

	if rate, ok := s.rates.Cached(); ok {
		overview.Rate.Rate = &rate
	}

	return overview
}

// MetalSnapshot returns the presentation contract for one metal: the
// current (or last-known-good) series, the refresh state, and the last
// error message when the most recent cycle failed.
func (s *RefreshService) MetalSnapshot(symbol model.MetalSymbol) model.MetalSnapshot {
	s.mu.RLock()
	status := *s.metals[symbol]
	s.mu.RUnlock()

	snapshot := model.MetalSnapshot{
		Symbol:          symbol,
		State:           status.state,
		LastError:       status.lastError,
		LastRefreshedAt: status.lastRefreshedAt,
	}
	if series, ok := s.history.Cached(symbol); ok {
		snapshot.Series = &series
		if snapshot.LastRefreshedAt.IsZero() {
			snapshot.LastRefreshedAt = series.FetchedAt
		}
	}
	return snapshot
}

func (s *RefreshService) setRateState(state model.SourceState, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateStatus.state = state
	s.rateStatus.lastError = message
	if state == model.StateReady {
		s.rateStatus.lastRefreshedAt = time.Now()
	}
}

func (s *RefreshService) setMetalState(symbol model.MetalSymbol, state model.SourceState, message string, refreshedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.metals[symbol]
	status.state = state
	status.lastError = message
	if !refreshedAt.IsZero() {
		status.lastRefreshedAt = refreshedAt
	}
}
