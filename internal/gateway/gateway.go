// Package gateway is the single entry point to both upstream providers.
// It owns the provider credentials server-side and implements
// rotation-on-failure: authorization and rate-limit responses are retried
// with the next credential in order; anything else propagates immediately.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/exchange"
	"github.com/sunchandi/sunchandi-backend/internal/metals"
	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// Gateway routes history and exchange-rate fetches to the upstream clients.
// Credentials are an explicit ordered list tried in order per request; there
// is no shared rotation counter, so concurrent requests cannot race on
// credential selection.
type Gateway struct {
	metals      *metals.Client
	exchange    *exchange.Client
	credentials []string
}

// New creates a Gateway. credentials must hold at least one history-provider
// API key; equivalent fallback keys follow in preference order.
func New(metalsClient *metals.Client, exchangeClient *exchange.Client, credentials []string) *Gateway {
	return &Gateway{
		metals:      metalsClient,
		exchange:    exchangeClient,
		credentials: credentials,
	}
}

// FetchHistory retrieves raw daily history for a metal, rotating through the
// configured credentials on authorization or rate-limit failures. It returns
// the first success or, after exhausting all credentials, the last observed
// error annotated with the number of attempts made.
func (g *Gateway) FetchHistory(ctx context.Context, symbol model.MetalSymbol, from, to time.Time) ([]model.RawPricePoint, error) {
	var lastErr error
	attempts := 0

	for _, key := range g.credentials {
		attempts++
		points, err := g.metals.FetchHistory(ctx, key, symbol, from, to)
		if err == nil {
			return points, nil
		}
		lastErr = err
		if !rotatable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: exhausted %d credential(s), last error: %v",
		apperrors.ErrUpstreamUnavailable, attempts, lastErr)
}

// FetchExchangeRate retrieves the current USD→NPR rate. The rate provider is
// unauthenticated, so there is nothing to rotate; errors propagate directly.
func (g *Gateway) FetchExchangeRate(ctx context.Context) (model.ExchangeRate, error) {
	return g.exchange.FetchLatestUSD(ctx)
}

// RelayHistory forwards a presentation-tier history request to the upstream
// provider with an injected credential, rotating on 401/403/429 responses.
// The upstream status code and body are returned verbatim so the relay
// endpoint can pass successes through unmodified.
func (g *Gateway) RelayHistory(ctx context.Context, query url.Values) (int, []byte, error) {
	var (
		lastStatus int
		lastBody   []byte
		lastErr    error
	)
	attempts := 0

	for _, key := range g.credentials {
		attempts++
		status, body, err := g.metals.HistoryRaw(ctx, key, query)
		if err != nil {
			return 0, nil, err
		}
		if !rotatableStatus(status) {
			return status, body, nil
		}
		lastStatus, lastBody = status, body
		lastErr = &apperrors.UpstreamStatusError{StatusCode: status}
	}

	return lastStatus, lastBody, fmt.Errorf("%w: exhausted %d credential(s), last error: %v",
		apperrors.ErrUpstreamUnavailable, attempts, lastErr)
}

// RelayExchangeRate forwards a rate request upstream, returning status and
// body verbatim.
func (g *Gateway) RelayExchangeRate(ctx context.Context) (int, []byte, error) {
	return g.exchange.LatestUSDRaw(ctx)
}

// rotatable reports whether retrying the request with a different credential
// could change the outcome.
func rotatable(err error) bool {
	var statusErr *apperrors.UpstreamStatusError
	if errors.As(err, &statusErr) {
		return rotatableStatus(statusErr.StatusCode)
	}
	return false
}

func rotatableStatus(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
