package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateClient fetches USD-based forex rates from the
// exchangerate-api latest/USD endpoint.
type ExchangeRateClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewExchangeRateClient builds a client with a bounded request timeout.
func NewExchangeRateClient(baseURL string, timeout time.Duration) *ExchangeRateClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExchangeRateClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchUSDRates returns every rate in the payload keyed by target
// currency. Callers pick the currencies they track; targets missing from
// the payload are skipped for the cycle.
func (c *ExchangeRateClient) FetchUSDRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	endpoint := c.baseURL + "/latest/USD"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: exchangerate: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: exchangerate returned status %d", ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Rates map[string]json.Number `json:"rates"`
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode exchangerate payload: %v", ErrParse, err)
	}
	if payload.Rates == nil {
		return nil, fmt.Errorf("%w: exchangerate payload has no rates", ErrParse)
	}

	rates := make(map[string]decimal.Decimal, len(payload.Rates))
	for currency, num := range payload.Rates {
		d, err := decimal.NewFromString(num.String())
		if err != nil {
			continue
		}
		rates[strings.ToUpper(currency)] = d
	}
	return rates, nil
}
