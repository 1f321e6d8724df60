package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// Reconcile turns raw per-day upstream records into an ordered derived
// series:
//
//  1. Points with a non-finite or non-positive spot price, or whose derived
//     prices come out non-positive, are discarded.
//  2. Duplicate calendar days collapse to the last record seen.
//  3. Remaining points are sorted by date ascending.
//  4. Day-over-day percent change is computed from the per-tola price; the
//     first point, a zero predecessor, or a non-finite result all record 0.
//
// An empty result after filtering is a fetch failure
// (apperrors.ErrEmptySeriesAfterFiltering), never a valid empty series.
func Reconcile(raw []model.RawPricePoint, rate model.ExchangeRate, margin Margin) ([]model.DerivedPricePoint, error) {
	byDay := make(map[string]model.DerivedPricePoint, len(raw))

	for _, rp := range raw {
		if !isPositiveFinite(rp.SpotUSDPerOunce) {
			continue
		}
		price := Derive(rp.SpotUSDPerOunce, rate.RateNPRPerUSD, margin)
		if price.PerGramNPR <= 0 || price.PerTolaNPR <= 0 {
			continue
		}
		day := rp.Date.UTC().Truncate(24 * time.Hour)
		byDay[day.Format("2006-01-02")] = model.DerivedPricePoint{
			Date:            day,
			SpotUSDPerOunce: rp.SpotUSDPerOunce,
			PricePerGramNPR: price.PerGramNPR,
			PricePerTolaNPR: price.PerTolaNPR,
		}
	}

	if len(byDay) == 0 {
		return nil, apperrors.ErrEmptySeriesAfterFiltering
	}

	points := make([]model.DerivedPricePoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	for i := 1; i < len(points); i++ {
		prev := float64(points[i-1].PricePerTolaNPR)
		if prev == 0 {
			continue
		}
		change := (float64(points[i].PricePerTolaNPR) - prev) / prev * 100
		if math.IsNaN(change) || math.IsInf(change, 0) {
			continue
		}
		points[i].PercentChange = change
	}

	return points, nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
