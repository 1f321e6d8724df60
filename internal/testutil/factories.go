package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// MakeRate creates an exchange rate valid for the given duration from now.
func MakeRate(rate float64, validFor time.Duration) model.ExchangeRate {
	return model.ExchangeRate{
		RateNPRPerUSD: rate,
		ValidUntil:    time.Now().Add(validFor).UTC(),
	}
}

// MakeRawPoints creates n consecutive daily raw points ending yesterday,
// with spot prices climbing from basePrice.
func MakeRawPoints(n int, basePrice float64) []model.RawPricePoint {
	now := time.Now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)

	points := make([]model.RawPricePoint, n)
	for i := 0; i < n; i++ {
		points[i] = model.RawPricePoint{
			Date:            yesterday.AddDate(0, 0, -n+i+1),
			SpotUSDPerOunce: basePrice + float64(i)*2.5,
		}
	}
	return points
}

// MakeSeries creates a derived series with n daily points fetched at the
// given time.
func MakeSeries(symbol model.MetalSymbol, n int, fetchedAt time.Time) model.MetalSeries {
	now := time.Now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, time.UTC)

	points := make([]model.DerivedPricePoint, n)
	for i := 0; i < n; i++ {
		gram := int64(25000 + i*10)
		points[i] = model.DerivedPricePoint{
			Date:            yesterday.AddDate(0, 0, -n+i+1),
			SpotUSDPerOunce: 4900 + float64(i),
			PricePerGramNPR: gram,
			PricePerTolaNPR: gram * 11,
		}
	}
	return model.MetalSeries{
		Symbol:    symbol,
		Points:    points,
		FetchedAt: fetchedAt.UTC(),
	}
}

// HistoryJSON renders raw points in the history provider's wire format.
func HistoryJSON(points []model.RawPricePoint) string {
	items := make([]string, 0, len(points))
	for _, p := range points {
		items = append(items, fmt.Sprintf(
			`{"day": %q, "max_price": %q}`,
			p.Date.UTC().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2f", p.SpotUSDPerOunce),
		))
	}
	return "[" + strings.Join(items, ",") + "]"
}
