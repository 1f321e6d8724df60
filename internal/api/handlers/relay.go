package handlers

import (
	"net/http"

	"github.com/sunchandi/sunchandi-backend/internal/api/response"
	"github.com/sunchandi/sunchandi-backend/internal/gateway"
)

// RelayHandler forwards presentation-tier requests to the upstream
// providers with server-held credentials injected. Successful upstream
// bodies pass through verbatim; failures become a structured {error,
// details} payload carrying the upstream (or 500) status code.
type RelayHandler struct {
	gateway *gateway.Gateway
}

// NewRelayHandler creates a new RelayHandler
func NewRelayHandler(gw *gateway.Gateway) *RelayHandler {
	return &RelayHandler{gateway: gw}
}

// History handles GET /api/relay/history, forwarding the query string to the
// history provider with an injected secret header and rotating credentials
// on 401/429 responses.
func (h *RelayHandler) History(w http.ResponseWriter, r *http.Request) {
	status, body, err := h.gateway.RelayHistory(r.Context(), r.URL.Query())
	h.respond(w, status, body, err)
}

// Rate handles GET /api/relay/rate, forwarding to the exchange-rate provider.
func (h *RelayHandler) Rate(w http.ResponseWriter, r *http.Request) {
	status, body, err := h.gateway.RelayExchangeRate(r.Context())
	h.respond(w, status, body, err)
}

func (h *RelayHandler) respond(w http.ResponseWriter, status int, body []byte, err error) {
	if err != nil {
		if status == 0 {
			status = http.StatusInternalServerError
		}
		response.RespondError(w, status, "upstream request failed", err.Error())
		return
	}
	if status < 200 || status > 299 {
		response.RespondError(w, status, "upstream request failed", string(body))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // a client that went away mid-write is not recoverable
	w.Write(body)
}
