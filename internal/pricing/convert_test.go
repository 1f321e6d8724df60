package pricing

import (
	"math"
	"testing"

	"github.com/sunchandi/sunchandi-backend/internal/model"
)

var testMargins = MarginSet{
	Gold:   Margin{Factor: 1.10, FlatPerTola: 5000},
	Silver: Margin{Factor: 1.16, FlatPerTola: 50},
}

func TestDerive(t *testing.T) {
	t.Run("reference gold quote", func(t *testing.T) {
		// spot 4994.50 USD/oz at 144.5737 NPR/USD:
		// 4994.50 / 31.1035 * 144.5737        = 23215.18 NPR/g unmargined
		// round(23215.18 * 1.10 + 5000/11.664) = 25965 NPR/g
		// round(25965 * 11.664)                = 302856 NPR/tola
		got := Derive(4994.50, 144.5737, testMargins.Gold)

		if got.PerGramNPR != 25965 {
			t.Errorf("Expected 25965 NPR/gram, got %d", got.PerGramNPR)
		}
		if got.PerTolaNPR != 302856 {
			t.Errorf("Expected 302856 NPR/tola, got %d", got.PerTolaNPR)
		}
	})

	t.Run("silver margin uses its own constants", func(t *testing.T) {
		// 55.25 / 31.1035 * 144.5737         = 256.810 NPR/g unmargined
		// round(256.822 * 1.16 + 50/11.664)  = 302 NPR/g
		// round(302 * 11.664)                = 3523 NPR/tola
		got := Derive(55.25, 144.5737, testMargins.Silver)

		if got.PerGramNPR != 302 {
			t.Errorf("Expected 302 NPR/gram, got %d", got.PerGramNPR)
		}
		if got.PerTolaNPR != 3523 {
			t.Errorf("Expected 3523 NPR/tola, got %d", got.PerTolaNPR)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		first := Derive(2011.13, 133.02, testMargins.Gold)
		second := Derive(2011.13, 133.02, testMargins.Gold)

		if first != second {
			t.Errorf("Expected identical outputs, got %+v and %+v", first, second)
		}
	})

	t.Run("tola price derives from rounded gram price", func(t *testing.T) {
		spots := []float64{1.0, 18.50, 412.9, 1999.99, 4994.50, 12000}
		rates := []float64{80.0, 110.25, 144.5737, 160.9}

		for _, spot := range spots {
			for _, rate := range rates {
				got := Derive(spot, rate, testMargins.Gold)

				if got.PerGramNPR <= 0 || got.PerTolaNPR <= 0 {
					t.Fatalf("Expected positive prices for spot=%v rate=%v, got %+v", spot, rate, got)
				}
				want := int64(math.Round(float64(got.PerGramNPR) * GramsPerTola))
				if got.PerTolaNPR != want {
					t.Errorf("spot=%v rate=%v: expected tola %d, got %d", spot, rate, want, got.PerTolaNPR)
				}
			}
		}
	})

	t.Run("margined price exceeds unmargined by at least the flat surcharge", func(t *testing.T) {
		for _, symbol := range model.AllMetals() {
			margin := testMargins.ForMetal(symbol)
			spot, rate := 2400.0, 135.5

			unmargined := spot / GramsPerTroyOunce * rate
			got := Derive(spot, rate, margin)

			// Factor > 1 means the gap is the flat per-gram surcharge plus
			// the percentage markup; the surcharge alone is the lower bound.
			minimum := unmargined + margin.FlatPerTola/GramsPerTola - 1 // rounding slack
			if float64(got.PerGramNPR) < minimum {
				t.Errorf("%s: expected at least %.2f NPR/gram, got %d", symbol, minimum, got.PerGramNPR)
			}
		}
	})
}

func TestMarginSetForMetal(t *testing.T) {
	if got := testMargins.ForMetal(model.Gold); got != testMargins.Gold {
		t.Errorf("Expected gold margin, got %+v", got)
	}
	if got := testMargins.ForMetal(model.Silver); got != testMargins.Silver {
		t.Errorf("Expected silver margin, got %+v", got)
	}
}
