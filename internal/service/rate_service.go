package service

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sunchandi/sunchandi-backend/internal/model"
	"github.com/sunchandi/sunchandi-backend/internal/repository"
)

// RateFetcher is the slice of the upstream gateway the rate cache needs.
type RateFetcher interface {
	FetchExchangeRate(ctx context.Context) (model.ExchangeRate, error)
}

// RateService is the exchange-rate cache. It returns the cached rate while
// the provider-declared expiry has not passed and fetches a replacement
// otherwise. A fetch failure propagates to the caller; the stale value is
// never silently reused past its expiry.
type RateService struct {
	repo    *repository.RateRepository
	gateway RateFetcher

	// now is swappable for tests.
	now func() time.Time

	sf     singleflight.Group
	mu     sync.RWMutex
	cached *model.ExchangeRate
}

// NewRateService creates a RateService.
func NewRateService(repo *repository.RateRepository, gateway RateFetcher) *RateService {
	return &RateService{
		repo:    repo,
		gateway: gateway,
		now:     time.Now,
	}
}

// Hydrate loads the persisted rate into memory. A missing or corrupt entry
// is not an error; the next GetRate call fetches fresh.
func (s *RateService) Hydrate() {
	rate, err := s.repo.Get()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.cached = &rate
	s.mu.Unlock()
}

// Cached returns the in-memory rate regardless of freshness, for snapshot
// display alongside its validity window.
func (s *RateService) Cached() (model.ExchangeRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return model.ExchangeRate{}, false
	}
	return *s.cached, true
}

// GetRate returns the active exchange rate, fetching a replacement when the
// cached one has expired or none exists. Concurrent callers coalesce onto a
// single upstream fetch, so both metals refreshed in one cycle observe the
// identical rate.
func (s *RateService) GetRate(ctx context.Context) (model.ExchangeRate, error) {
	if rate, ok := s.fresh(); ok {
		return rate, nil
	}

	v, err, _ := s.sf.Do("usd-npr", func() (interface{}, error) {
		// A coalesced caller may arrive after the winner stored the result.
		if rate, ok := s.fresh(); ok {
			return rate, nil
		}

		rate, err := s.gateway.FetchExchangeRate(ctx)
		if err != nil {
			return nil, err
		}

		if err := s.repo.Save(rate); err != nil {
			// Persistence failure only costs durability across restarts.
			log.Printf("Failed to persist exchange rate: %v", err)
		}

		s.mu.Lock()
		stored := rate
		s.cached = &stored
		s.mu.Unlock()

		return rate, nil
	})
	if err != nil {
		return model.ExchangeRate{}, err
	}
	return v.(model.ExchangeRate), nil
}

func (s *RateService) fresh() (model.ExchangeRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached != nil && s.cached.ValidAt(s.now()) {
		return *s.cached, true
	}
	return model.ExchangeRate{}, false
}
