package repository

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// RateRepository persists the single active USD→NPR exchange rate in the
// exchange_rate_cache table. The rate is replaced wholesale on each save so
// readers never observe a half-written entry.
type RateRepository struct {
	db *sql.DB
}

// NewRateRepository creates a RateRepository with the provided database connection.
func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

// Get returns the persisted exchange rate, or apperrors.ErrRateNotCached
// when nothing has been stored. A row with unparseable timestamps is treated
// as corrupt: it is discarded and ErrRateNotCached is returned, so the
// caller proceeds as if no cache existed.
func (r *RateRepository) Get() (model.ExchangeRate, error) {
	var (
		rate       float64
		validUntil string
	)
	err := r.db.QueryRow(
		`SELECT rate_npr_per_usd, valid_until FROM exchange_rate_cache LIMIT 1`,
	).Scan(&rate, &validUntil)
	if err == sql.ErrNoRows {
		return model.ExchangeRate{}, apperrors.ErrRateNotCached
	}
	if err != nil {
		return model.ExchangeRate{}, fmt.Errorf("failed to query exchange_rate_cache: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339, validUntil)
	if err != nil || rate <= 0 {
		log.Printf("Discarding corrupt exchange rate cache entry: rate=%v valid_until=%q", rate, validUntil)
		r.discard()
		return model.ExchangeRate{}, apperrors.ErrRateNotCached
	}

	return model.ExchangeRate{
		RateNPRPerUSD: rate,
		ValidUntil:    parsed.UTC(),
	}, nil
}

// Save replaces the persisted rate with the given one inside a transaction.
func (r *RateRepository) Save(rate model.ExchangeRate) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rate save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM exchange_rate_cache`); err != nil {
		return fmt.Errorf("failed to clear exchange_rate_cache: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO exchange_rate_cache (id, rate_npr_per_usd, valid_until, fetched_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(),
		rate.RateNPRPerUSD,
		rate.ValidUntil.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert exchange rate: %w", err)
	}

	return tx.Commit()
}

func (r *RateRepository) discard() {
	if _, err := r.db.Exec(`DELETE FROM exchange_rate_cache`); err != nil {
		log.Printf("Failed to discard corrupt exchange rate entry: %v", err)
	}
}
