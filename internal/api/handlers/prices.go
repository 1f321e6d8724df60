package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sunchandi/sunchandi-backend/internal/api/response"
	"github.com/sunchandi/sunchandi-backend/internal/model"
	"github.com/sunchandi/sunchandi-backend/internal/service"
)

// PricesHandler serves the converted price series and drives manual
// refreshes.
type PricesHandler struct {
	refreshService *service.RefreshService
}

// NewPricesHandler creates a new PricesHandler
func NewPricesHandler(refreshService *service.RefreshService) *PricesHandler {
	return &PricesHandler{refreshService: refreshService}
}

// PricePointResponse is one derived day in API form. Date is the canonical
// calendar-day key.
type PricePointResponse struct {
	Date            string  `json:"date"`
	SpotUSDPerOunce float64 `json:"spot_usd_per_ounce"`
	PricePerGramNPR int64   `json:"price_per_gram_npr"`
	PricePerTolaNPR int64   `json:"price_per_tola_npr"`
	PercentChange   float64 `json:"percent_change"`
}

// MetalResponse is one metal's snapshot: the current (or last-known-good)
// series plus refresh state. When State is FAILED the points shown are the
// most recent successful data and LastError carries the banner message.
type MetalResponse struct {
	Symbol          string               `json:"symbol"`
	State           string               `json:"state"`
	LastError       string               `json:"last_error,omitempty"`
	LastRefreshedAt *time.Time           `json:"last_refreshed_at,omitempty"`
	Points          []PricePointResponse `json:"points"`
}

// RateResponse is the exchange-rate snapshot.
type RateResponse struct {
	State         string     `json:"state"`
	LastError     string     `json:"last_error,omitempty"`
	RateNPRPerUSD *float64   `json:"rate_npr_per_usd,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
}

// OverviewResponse is the full dashboard payload.
type OverviewResponse struct {
	Metals       []MetalResponse `json:"metals"`
	ExchangeRate RateResponse    `json:"exchange_rate"`
}

// Prices handles GET /api/v1/prices: both metals' series (or last-known-good
// with an error indicator) plus the active exchange rate.
func (h *PricesHandler) Prices(w http.ResponseWriter, r *http.Request) {
	overview := h.refreshService.Snapshot()

	resp := OverviewResponse{
		Metals:       make([]MetalResponse, 0, len(overview.Metals)),
		ExchangeRate: toRateResponse(overview.Rate),
	}
	for _, snapshot := range overview.Metals {
		resp.Metals = append(resp.Metals, toMetalResponse(snapshot))
	}

	response.RespondJSON(w, http.StatusOK, resp)
}

// Price handles GET /api/v1/prices/{symbol} for a single metal.
func (h *PricesHandler) Price(w http.ResponseWriter, r *http.Request) {
	symbol, err := model.ParseMetalSymbol(chi.URLParam(r, "symbol"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid metal symbol", err.Error())
		return
	}

	snapshot := h.refreshService.MetalSnapshot(symbol)
	response.RespondJSON(w, http.StatusOK, toMetalResponse(snapshot))
}

// Refresh handles POST /api/v1/prices/refresh: a manual forced refresh of
// both metals, independent of the timer and the cache TTL. It responds with
// the resulting snapshot.
func (h *PricesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.refreshService.Refresh(r.Context(), true)
	h.Prices(w, r)
}

// Rate handles GET /api/v1/rate.
func (h *PricesHandler) Rate(w http.ResponseWriter, r *http.Request) {
	overview := h.refreshService.Snapshot()
	response.RespondJSON(w, http.StatusOK, toRateResponse(overview.Rate))
}

func toMetalResponse(snapshot model.MetalSnapshot) MetalResponse {
	resp := MetalResponse{
		Symbol: string(snapshot.Symbol),
		State:  string(snapshot.State),
		// Points stays non-nil so "no data yet" serializes as [], not null.
		Points:    []PricePointResponse{},
		LastError: snapshot.LastError,
	}
	if !snapshot.LastRefreshedAt.IsZero() {
		at := snapshot.LastRefreshedAt
		resp.LastRefreshedAt = &at
	}
	if snapshot.Series != nil {
		for _, p := range snapshot.Series.Points {
			resp.Points = append(resp.Points, PricePointResponse{
				Date:            p.DateKey(),
				SpotUSDPerOunce: p.SpotUSDPerOunce,
				PricePerGramNPR: p.PricePerGramNPR,
				PricePerTolaNPR: p.PricePerTolaNPR,
				PercentChange:   p.PercentChange,
			})
		}
	}
	return resp
}

func toRateResponse(snapshot model.RateSnapshot) RateResponse {
	resp := RateResponse{
		State:     string(snapshot.State),
		LastError: snapshot.LastError,
	}
	if snapshot.Rate != nil {
		rate := snapshot.Rate.RateNPRPerUSD
		validUntil := snapshot.Rate.ValidUntil
		resp.RateNPRPerUSD = &rate
		resp.ValidUntil = &validUntil
	}
	return resp
}
