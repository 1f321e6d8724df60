package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/testutil"
)

func TestRateRepository(t *testing.T) {
	t.Run("returns not cached on an empty store", func(t *testing.T) {
		repo := NewRateRepository(testutil.SetupTestDB(t))

		_, err := repo.Get()
		if !errors.Is(err, apperrors.ErrRateNotCached) {
			t.Fatalf("Expected ErrRateNotCached, got %v", err)
		}
	})

	t.Run("round-trips a saved rate", func(t *testing.T) {
		repo := NewRateRepository(testutil.SetupTestDB(t))
		saved := testutil.MakeRate(144.5737, time.Hour)

		if err := repo.Save(saved); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Get()
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.RateNPRPerUSD != saved.RateNPRPerUSD {
			t.Errorf("Expected rate %v, got %v", saved.RateNPRPerUSD, got.RateNPRPerUSD)
		}
		// RFC3339 storage keeps second precision.
		if !got.ValidUntil.Equal(saved.ValidUntil.Truncate(time.Second)) {
			t.Errorf("Expected valid_until %v, got %v", saved.ValidUntil, got.ValidUntil)
		}
	})

	t.Run("save replaces the previous rate", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := NewRateRepository(db)

		if err := repo.Save(testutil.MakeRate(140, time.Hour)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := repo.Save(testutil.MakeRate(145.5, time.Hour)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Get()
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.RateNPRPerUSD != 145.5 {
			t.Errorf("Expected replaced rate 145.5, got %v", got.RateNPRPerUSD)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM exchange_rate_cache`).Scan(&count); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected a single row after replace, got %d", count)
		}
	})

	t.Run("discards a corrupt row and reads as not cached", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := NewRateRepository(db)

		_, err := db.Exec(
			`INSERT INTO exchange_rate_cache (id, rate_npr_per_usd, valid_until, fetched_at) VALUES (?, ?, ?, ?)`,
			"corrupt", 144.5, "not-a-timestamp", "also-not-a-timestamp",
		)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		_, err = repo.Get()
		if !errors.Is(err, apperrors.ErrRateNotCached) {
			t.Fatalf("Expected ErrRateNotCached for corrupt row, got %v", err)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM exchange_rate_cache`).Scan(&count); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected corrupt row removed, %d rows remain", count)
		}

		// The store stays usable for the next save.
		if err := repo.Save(testutil.MakeRate(145, time.Hour)); err != nil {
			t.Fatalf("Save after discard failed: %v", err)
		}
		if _, err := repo.Get(); err != nil {
			t.Fatalf("Get after recovery failed: %v", err)
		}
	})

	t.Run("rejects a non-positive stored rate as corrupt", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := NewRateRepository(db)

		_, err := db.Exec(
			`INSERT INTO exchange_rate_cache (id, rate_npr_per_usd, valid_until, fetched_at) VALUES (?, ?, ?, ?)`,
			"zero-rate", 0.0,
			time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if _, err := repo.Get(); !errors.Is(err, apperrors.ErrRateNotCached) {
			t.Fatalf("Expected ErrRateNotCached for zero rate, got %v", err)
		}
	})
}
