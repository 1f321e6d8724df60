// Package exchange is the HTTP client for the upstream USD exchange-rate
// provider.
package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// Client fetches the current USD to NPR rate from the upstream provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an exchange-rate client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// FetchLatestUSD retrieves the current USD→NPR rate. The provider's
// time_next_update_unix becomes ExchangeRate.ValidUntil verbatim; the cache
// never invents its own expiry.
func (c *Client) FetchLatestUSD(ctx context.Context) (model.ExchangeRate, error) {
	status, body, err := c.LatestUSDRaw(ctx)
	if err != nil {
		return model.ExchangeRate{}, err
	}
	if status < 200 || status > 299 {
		return model.ExchangeRate{}, &apperrors.UpstreamStatusError{StatusCode: status, Body: string(body)}
	}

	rate := gjson.GetBytes(body, "conversion_rates.NPR")
	nextUpdate := gjson.GetBytes(body, "time_next_update_unix")
	if !rate.Exists() || !nextUpdate.Exists() || rate.Float() <= 0 || nextUpdate.Int() <= 0 {
		return model.ExchangeRate{}, fmt.Errorf("%w: missing conversion_rates.NPR or time_next_update_unix", apperrors.ErrInvalidResponseShape)
	}

	return model.ExchangeRate{
		RateNPRPerUSD: rate.Float(),
		ValidUntil:    time.Unix(nextUpdate.Int(), 0).UTC(),
	}, nil
}

// LatestUSDRaw executes the rate request and returns the upstream status
// code and body verbatim for the relay endpoint.
func (c *Client) LatestUSDRaw(ctx context.Context) (int, []byte, error) {
	reqURL := fmt.Sprintf("%s/latest/USD", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	return resp.StatusCode, body, nil
}
