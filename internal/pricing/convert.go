// Package pricing holds the pure price-derivation logic: converting a USD
// per-troy-ounce spot quote into Nepal retail NPR per gram/tola, and
// reconciling raw upstream history into an ordered derived series.
package pricing

import (
	"math"

	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// Mass conversion constants.
const (
	// GramsPerTroyOunce converts metals-trading troy ounces to grams.
	// Not the avoirdupois ounce constant.
	GramsPerTroyOunce = 31.1035

	// GramsPerTola converts grams to tola, the standard retail unit for
	// precious metals in Nepal.
	GramsPerTola = 11.664
)

// Margin is the retail margin rule for one metal: a percentage markup
// expressed as a multiplier (1.10 = +10%) plus a flat surcharge quoted per
// tola. The surcharge is divided into per-gram terms before application.
// Values come from configuration, not hardcoded business logic.
type Margin struct {
	Factor      float64
	FlatPerTola float64
}

// MarginSet holds the margin rules for every supported metal.
type MarginSet struct {
	Gold   Margin
	Silver Margin
}

// ForMetal returns the margin rule for the given metal.
func (m MarginSet) ForMetal(symbol model.MetalSymbol) Margin {
	if symbol == model.Silver {
		return m.Silver
	}
	return m.Gold
}

// RetailPrice is the derived Nepal retail quote for one day, rounded to
// whole rupees.
type RetailPrice struct {
	PerGramNPR int64
	PerTolaNPR int64
}

// Derive converts a USD-per-troy-ounce spot price into NPR per gram and per
// tola using the given exchange rate and margin rule. It is a pure function.
//
// Full float precision is carried through the unit and currency conversion;
// rounding (half-up for the positive inputs this sees) happens exactly twice:
// once on the margined per-gram price, and once on the per-tola price
// computed from the already-rounded per-gram price. This keeps the published
// gram and tola quotes consistent with each other.
//
// Derive performs no input validation; the reconciler filters non-finite and
// non-positive values before and after conversion.
func Derive(spotUSDPerOunce, rateNPRPerUSD float64, margin Margin) RetailPrice {
	usdPerGram := spotUSDPerOunce / GramsPerTroyOunce
	nprPerGram := usdPerGram * rateNPRPerUSD

	perGram := math.Round(nprPerGram*margin.Factor + margin.FlatPerTola/GramsPerTola)
	perTola := math.Round(perGram * GramsPerTola)

	return RetailPrice{
		PerGramNPR: int64(perGram),
		PerTolaNPR: int64(perTola),
	}
}
