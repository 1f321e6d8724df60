// Package metals is the HTTP client for the upstream metal spot-price
// history provider. It knows the provider's wire format; credential
// selection and rotation live in the gateway.
package metals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/model"
)

// dayLayout is the provider's day format. The time component is always
// midnight and is discarded.
const dayLayout = "2006-01-02 15:04:05"

// Client fetches daily spot-price history from the upstream provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a history-provider client. The timeout bounds every
// request; a timeout is treated identically to a fetch failure by callers.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// FetchHistory retrieves daily history for a metal between from and to
// (inclusive), authenticated with the given API key.
//
// Items whose day or price fail to parse are skipped; numeric validity of
// the surviving points is the reconciler's concern. A body that does not
// parse as the expected JSON array at all is ErrInvalidResponseShape.
func (c *Client) FetchHistory(ctx context.Context, apiKey string, symbol model.MetalSymbol, from, to time.Time) ([]model.RawPricePoint, error) {
	status, body, err := c.HistoryRaw(ctx, apiKey, url.Values{
		"symbol":         {string(symbol)},
		"groupBy":        {"day"},
		"startTimestamp": {strconv.FormatInt(from.Unix(), 10)},
		"endTimestamp":   {strconv.FormatInt(to.Unix(), 10)},
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &apperrors.UpstreamStatusError{StatusCode: status, Body: string(body)}
	}

	var items []HistoryItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidResponseShape, err)
	}

	points := make([]model.RawPricePoint, 0, len(items))
	for _, item := range items {
		date, err := time.Parse(dayLayout, item.Day)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(item.MaxPrice, 64)
		if err != nil {
			continue
		}
		points = append(points, model.RawPricePoint{
			Date:            date.UTC().Truncate(24 * time.Hour),
			SpotUSDPerOunce: price,
		})
	}

	return points, nil
}

// HistoryRaw executes a history request and returns the upstream status code
// and body verbatim. The relay endpoint uses this to pass responses through
// unmodified.
func (c *Client) HistoryRaw(ctx context.Context, apiKey string, query url.Values) (int, []byte, error) {
	reqURL := fmt.Sprintf("%s/history?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", apiKey)

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
