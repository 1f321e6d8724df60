package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/model"
	"github.com/sunchandi/sunchandi-backend/internal/pricing"
	"github.com/sunchandi/sunchandi-backend/internal/repository"
	"github.com/sunchandi/sunchandi-backend/internal/testutil"
)

var serviceTestMargins = pricing.MarginSet{
	Gold:   pricing.Margin{Factor: 1.10, FlatPerTola: 5000},
	Silver: pricing.Margin{Factor: 1.16, FlatPerTola: 50},
}

func setupHistoryService(t *testing.T) (*HistoryService, *testutil.MockGateway) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	gw := testutil.NewMockGateway()
	rates := NewRateService(repository.NewRateRepository(db), gw)
	svc := NewHistoryService(
		repository.NewSeriesRepository(db), gw, rates, serviceTestMargins,
		30*time.Minute, 30,
	)
	return svc, gw
}

func TestHistoryService_GetOrFetch(t *testing.T) {
	t.Run("fetches converts and caches on first read", func(t *testing.T) {
		svc, gw := setupHistoryService(t)

		series, err := svc.GetOrFetch(context.Background(), model.Gold, false)
		if err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if len(series.Points) != len(gw.HistoryPoints) {
			t.Errorf("Expected %d points, got %d", len(gw.HistoryPoints), len(series.Points))
		}
		if series.Symbol != model.Gold {
			t.Errorf("Expected symbol GOLD, got %s", series.Symbol)
		}
		for _, p := range series.Points {
			if p.PricePerGramNPR <= 0 || p.PricePerTolaNPR <= 0 {
				t.Errorf("Expected positive retail prices, got %+v", p)
			}
		}
	})

	t.Run("reuses cached series within the TTL", func(t *testing.T) {
		svc, gw := setupHistoryService(t)

		if _, err := svc.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if _, err := svc.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}

		if gw.HistoryCalls != 1 {
			t.Errorf("Expected 1 upstream call for two reads, got %d", gw.HistoryCalls)
		}
	})

	t.Run("refetches once the TTL expires", func(t *testing.T) {
		svc, gw := setupHistoryService(t)

		if _, err := svc.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}

		svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

		if _, err := svc.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if gw.HistoryCalls != 2 {
			t.Errorf("Expected refetch after TTL, got %d calls", gw.HistoryCalls)
		}
	})

	t.Run("force bypasses the TTL", func(t *testing.T) {
		svc, gw := setupHistoryService(t)

		if _, err := svc.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if _, err := svc.GetOrFetch(context.Background(), model.Gold, true); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}

		if gw.HistoryCalls != 2 {
			t.Errorf("Expected forced refetch, got %d calls", gw.HistoryCalls)
		}
	})

	t.Run("metals cache independently", func(t *testing.T) {
		svc, gw := setupHistoryService(t)

		if _, err := svc.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if _, err := svc.GetOrFetch(context.Background(), model.Silver, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}

		if gw.HistoryCalls != 2 {
			t.Errorf("Expected one fetch per metal, got %d", gw.HistoryCalls)
		}
		if _, ok := svc.Cached(model.Gold); !ok {
			t.Error("Expected gold series cached")
		}
		if _, ok := svc.Cached(model.Silver); !ok {
			t.Error("Expected silver series cached")
		}
	})

	t.Run("returns last-known-good alongside the error on fetch failure", func(t *testing.T) {
		svc, gw := setupHistoryService(t)

		good, err := svc.GetOrFetch(context.Background(), model.Gold, false)
		if err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}

		gw.WithHistoryError(apperrors.ErrUpstreamUnavailable)

		series, err := svc.GetOrFetch(context.Background(), model.Gold, true)
		if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
		}
		if len(series.Points) != len(good.Points) {
			t.Errorf("Expected previous series retained, got %d points", len(series.Points))
		}
	})

	t.Run("returns only the error when nothing was ever cached", func(t *testing.T) {
		svc, gw := setupHistoryService(t)
		gw.WithHistoryError(apperrors.ErrUpstreamUnavailable)

		series, err := svc.GetOrFetch(context.Background(), model.Gold, false)
		if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
		}
		if len(series.Points) != 0 {
			t.Errorf("Expected empty series, got %d points", len(series.Points))
		}
	})

	t.Run("rejects a batch that is empty after filtering", func(t *testing.T) {
		svc, gw := setupHistoryService(t)
		gw.HistoryPoints = []model.RawPricePoint{
			{Date: time.Now().UTC(), SpotUSDPerOunce: -1},
		}

		_, err := svc.GetOrFetch(context.Background(), model.Gold, false)
		if !errors.Is(err, apperrors.ErrEmptySeriesAfterFiltering) {
			t.Fatalf("Expected ErrEmptySeriesAfterFiltering, got %v", err)
		}
	})

	t.Run("concurrent forced fetches coalesce into one upstream call", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		gw := testutil.NewBlockingHistoryGateway()
		rates := NewRateService(repository.NewRateRepository(db), gw)
		svc := NewHistoryService(
			repository.NewSeriesRepository(db), gw, rates, serviceTestMargins,
			30*time.Minute, 30,
		)

		const callers = 8
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.GetOrFetch(context.Background(), model.Gold, true)
				errs <- err
			}()
		}

		// Let every caller pile up on the in-flight fetch before releasing it.
		time.Sleep(50 * time.Millisecond)
		gw.Release()
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Fatalf("GetOrFetch failed: %v", err)
			}
		}
		if got := gw.HistoryCalls(); got != 1 {
			t.Errorf("Expected concurrent fetches to coalesce into 1 upstream call, got %d", got)
		}
	})

	t.Run("rate failure fails the conversion but keeps the old series", func(t *testing.T) {
		svc, gw := setupHistoryService(t)

		if _, err := svc.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}

		// Expire the cached rate and make its refetch fail.
		svc.rates.now = func() time.Time { return gw.Rate.ValidUntil.Add(time.Second) }
		gw.WithRateError(apperrors.ErrUpstreamUnavailable)

		series, err := svc.GetOrFetch(context.Background(), model.Gold, true)
		if !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
		}
		if len(series.Points) == 0 {
			t.Error("Expected previous series retained after rate failure")
		}
	})
}

func TestHistoryService_Hydrate(t *testing.T) {
	t.Run("restores persisted series across instances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		gw := testutil.NewMockGateway()
		seriesRepo := repository.NewSeriesRepository(db)
		rateRepo := repository.NewRateRepository(db)

		first := NewHistoryService(seriesRepo, gw, NewRateService(rateRepo, gw), serviceTestMargins, 30*time.Minute, 30)
		if _, err := first.GetOrFetch(context.Background(), model.Gold, false); err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}

		second := NewHistoryService(seriesRepo, gw, NewRateService(rateRepo, gw), serviceTestMargins, 30*time.Minute, 30)
		second.Hydrate()

		series, ok := second.Cached(model.Gold)
		if !ok {
			t.Fatal("Expected hydrated series")
		}
		if len(series.Points) != len(gw.HistoryPoints) {
			t.Errorf("Expected %d points after hydrate, got %d", len(gw.HistoryPoints), len(series.Points))
		}
	})

	t.Run("skips metals with no persisted series", func(t *testing.T) {
		svc, _ := setupHistoryService(t)
		svc.Hydrate()

		if _, ok := svc.Cached(model.Gold); ok {
			t.Error("Expected no cached series on an empty store")
		}
	})
}
