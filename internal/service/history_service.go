package service

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sunchandi/sunchandi-backend/internal/model"
	"github.com/sunchandi/sunchandi-backend/internal/pricing"
	"github.com/sunchandi/sunchandi-backend/internal/repository"
)

// HistoryFetcher is the slice of the upstream gateway the history cache needs.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol model.MetalSymbol, from, to time.Time) ([]model.RawPricePoint, error)
}

// HistoryService is the per-metal price history cache. A cached series
// younger than the TTL is returned unchanged on non-forced reads; otherwise
// the trailing window is fetched, converted with the current exchange rate,
// reconciled, and the cache entry replaced wholesale.
//
// On fetch or processing failure the previous series is preserved and
// returned to the caller alongside the error, so the presentation tier can
// show last-known-good data with an error banner instead of going blank.
type HistoryService struct {
	repo    *repository.SeriesRepository
	gateway HistoryFetcher
	rates   *RateService
	margins pricing.MarginSet

	ttl        time.Duration
	windowDays int

	// now is swappable for tests.
	now func() time.Time

	sf     singleflight.Group
	mu     sync.RWMutex
	cached map[model.MetalSymbol]*model.MetalSeries
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(
	repo *repository.SeriesRepository,
	gateway HistoryFetcher,
	rates *RateService,
	margins pricing.MarginSet,
	ttl time.Duration,
	windowDays int,
) *HistoryService {
	return &HistoryService{
		repo:       repo,
		gateway:    gateway,
		rates:      rates,
		margins:    margins,
		ttl:        ttl,
		windowDays: windowDays,
		now:        time.Now,
		cached:     make(map[model.MetalSymbol]*model.MetalSeries),
	}
}

// Hydrate loads persisted series for every metal into memory. Missing or
// corrupt entries are skipped; they will be fetched on the next refresh.
func (s *HistoryService) Hydrate() {
	for _, symbol := range model.AllMetals() {
		series, err := s.repo.Get(symbol)
		if err != nil {
			continue
		}
		s.store(series)
	}
}

// Cached returns the in-memory series for a metal regardless of freshness.
// This is the last-known-good value shown while a refresh fails.
func (s *HistoryService) Cached(symbol model.MetalSymbol) (model.MetalSeries, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.cached[symbol]
	if !ok {
		return model.MetalSeries{}, false
	}
	return *series, true
}

// GetOrFetch returns the series for a metal, fetching when the cache is
// missing, older than the TTL, or force is set. force bypasses the age
// threshold but still reuses a still-valid exchange rate.
//
// When the fetch fails and a previous series exists, that series is returned
// together with the error; callers must treat a non-nil error as "data is
// stale" rather than "no data".
func (s *HistoryService) GetOrFetch(ctx context.Context, symbol model.MetalSymbol, force bool) (model.MetalSeries, error) {
	return s.getOrFetch(ctx, symbol, force, nil)
}

// RefreshWithRate behaves like GetOrFetch but derives from the supplied
// exchange rate instead of resolving one through the rate cache. The refresh
// orchestrator pins the rate it resolved at cycle start and passes it here,
// so every metal in one cycle derives from the identical rate even when the
// rate's validity window ends mid-cycle.
func (s *HistoryService) RefreshWithRate(ctx context.Context, symbol model.MetalSymbol, rate model.ExchangeRate, force bool) (model.MetalSeries, error) {
	return s.getOrFetch(ctx, symbol, force, &rate)
}

func (s *HistoryService) getOrFetch(ctx context.Context, symbol model.MetalSymbol, force bool, pinned *model.ExchangeRate) (model.MetalSeries, error) {
	if !force {
		if series, ok := s.freshCached(symbol); ok {
			return series, nil
		}
	}

	// At most one in-flight fetch per metal; concurrent triggers coalesce
	// onto the winner's result.
	v, err, _ := s.sf.Do(string(symbol), func() (interface{}, error) {
		if !force {
			if series, ok := s.freshCached(symbol); ok {
				return series, nil
			}
		}
		return s.fetch(ctx, symbol, pinned)
	})
	if err != nil {
		if last, ok := s.Cached(symbol); ok {
			return last, err
		}
		return model.MetalSeries{}, err
	}
	return v.(model.MetalSeries), nil
}

func (s *HistoryService) fetch(ctx context.Context, symbol model.MetalSymbol, pinned *model.ExchangeRate) (model.MetalSeries, error) {
	to := s.now()
	from := to.AddDate(0, 0, -s.windowDays)

	raw, err := s.gateway.FetchHistory(ctx, symbol, from, to)
	if err != nil {
		return model.MetalSeries{}, err
	}

	rate, err := s.resolveRate(ctx, pinned)
	if err != nil {
		return model.MetalSeries{}, err
	}

	points, err := pricing.Reconcile(raw, rate, s.margins.ForMetal(symbol))
	if err != nil {
		return model.MetalSeries{}, err
	}

	series := model.MetalSeries{
		Symbol:    symbol,
		Points:    points,
		FetchedAt: s.now(),
	}

	if err := s.repo.Save(series); err != nil {
		// Persistence failure only costs durability across restarts.
		log.Printf("Failed to persist %s series: %v", symbol, err)
	}
	s.store(series)

	return series, nil
}

// resolveRate uses the cycle-pinned rate when one was supplied; direct
// callers outside a refresh cycle go through the rate cache, which coalesces
// concurrent fetches.
func (s *HistoryService) resolveRate(ctx context.Context, pinned *model.ExchangeRate) (model.ExchangeRate, error) {
	if pinned != nil {
		return *pinned, nil
	}
	return s.rates.GetRate(ctx)
}

func (s *HistoryService) freshCached(symbol model.MetalSymbol) (model.MetalSeries, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.cached[symbol]
	if !ok || series.Age(s.now()) >= s.ttl {
		return model.MetalSeries{}, false
	}
	return *series, true
}

func (s *HistoryService) store(series model.MetalSeries) {
	s.mu.Lock()
	s.cached[series.Symbol] = &series
	s.mu.Unlock()
}
