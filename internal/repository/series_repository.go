package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// SeriesRepository persists one converted series per metal in the
// metal_series_cache table, points serialized as JSON.
type SeriesRepository struct {
	db *sql.DB
}

// NewSeriesRepository creates a SeriesRepository with the provided database connection.
func NewSeriesRepository(db *sql.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

// Get returns the persisted series for a metal, or
// apperrors.ErrSeriesNotCached when nothing has been stored. A row whose
// points fail to deserialize is treated as corrupt: it is discarded and
// ErrSeriesNotCached is returned so the caller proceeds as if no cache
// existed. Corruption is never surfaced to the user.
func (r *SeriesRepository) Get(symbol model.MetalSymbol) (model.MetalSeries, error) {
	var (
		pointsJSON string
		fetchedAt  string
	)
	err := r.db.QueryRow(
		`SELECT points, fetched_at FROM metal_series_cache WHERE symbol = ?`,
		string(symbol),
	).Scan(&pointsJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return model.MetalSeries{}, apperrors.ErrSeriesNotCached
	}
	if err != nil {
		return model.MetalSeries{}, fmt.Errorf("failed to query metal_series_cache: %w", err)
	}

	var points []model.DerivedPricePoint
	fetched, timeErr := time.Parse(time.RFC3339, fetchedAt)
	if jsonErr := json.Unmarshal([]byte(pointsJSON), &points); jsonErr != nil || timeErr != nil || len(points) == 0 {
		log.Printf("Discarding corrupt series cache entry for %s", symbol)
		r.discard(symbol)
		return model.MetalSeries{}, apperrors.ErrSeriesNotCached
	}

	return model.MetalSeries{
		Symbol:    symbol,
		Points:    points,
		FetchedAt: fetched.UTC(),
	}, nil
}

// Save replaces the persisted series for the metal wholesale.
func (r *SeriesRepository) Save(series model.MetalSeries) error {
	pointsJSON, err := json.Marshal(series.Points)
	if err != nil {
		return fmt.Errorf("failed to serialize series points: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO metal_series_cache (id, symbol, points, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET points = excluded.points, fetched_at = excluded.fetched_at`,
		uuid.NewString(),
		string(series.Symbol),
		string(pointsJSON),
		series.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert metal series: %w", err)
	}

	return nil
}

func (r *SeriesRepository) discard(symbol model.MetalSymbol) {
	if _, err := r.db.Exec(`DELETE FROM metal_series_cache WHERE symbol = ?`, string(symbol)); err != nil {
		log.Printf("Failed to discard corrupt series entry for %s: %v", symbol, err)
	}
}
