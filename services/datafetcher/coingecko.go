package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CryptoQuote is one parsed symbol from a CoinGecko simple/price response.
type CryptoQuote struct {
	Symbol           string
	Name             string
	PriceUsd         decimal.Decimal
	PriceEur         decimal.Decimal
	MarketCapUsd     decimal.Decimal
	Volume24hUsd     decimal.Decimal
	ChangePercent24h decimal.Decimal
}

// coinNames maps CoinGecko coin ids to display symbols and names. The
// refresh worker owns this table; ids absent from it are skipped.
var coinNames = map[string]struct{ Symbol, Name string }{
	"bitcoin":     {"BTC", "Bitcoin"},
	"ethereum":    {"ETH", "Ethereum"},
	"binancecoin": {"BNB", "Binance Coin"},
	"cardano":     {"ADA", "Cardano"},
	"solana":      {"SOL", "Solana"},
	"ripple":      {"XRP", "Ripple"},
	"polkadot":    {"DOT", "Polkadot"},
	"dogecoin":    {"DOGE", "Dogecoin"},
	"avalanche-2": {"AVAX", "Avalanche"},
	"polygon":     {"MATIC", "Polygon"},
}

// CoinGeckoClient fetches crypto prices from the CoinGecko simple/price
// endpoint.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoClient builds a client with a bounded request timeout.
func NewCoinGeckoClient(baseURL string, timeout time.Duration) *CoinGeckoClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchPrices requests the given coin ids in one call and returns the
// quotes present in the payload, keyed by coin id. Ids missing from the
// response are simply absent from the result; only a whole-request
// failure returns an error.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context, ids []string) (map[string]CryptoQuote, error) {
	endpoint := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=usd,eur&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: coingecko returned status %d", ErrUpstream, resp.StatusCode)
	}

	// json.Number keeps upstream decimals exact until converted.
	var payload map[string]map[string]json.Number
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode coingecko payload: %v", ErrParse, err)
	}

	quotes := make(map[string]CryptoQuote, len(payload))
	for _, id := range ids {
		coin, ok := payload[id]
		if !ok {
			continue
		}
		meta, ok := coinNames[id]
		if !ok {
			continue
		}

		quote := CryptoQuote{Symbol: meta.Symbol, Name: meta.Name}
		fields := []struct {
			key  string
			dest *decimal.Decimal
		}{
			{"usd", &quote.PriceUsd},
			{"eur", &quote.PriceEur},
			{"usd_market_cap", &quote.MarketCapUsd},
			{"usd_24h_vol", &quote.Volume24hUsd},
			{"usd_24h_change", &quote.ChangePercent24h},
		}
		valid := true
		for _, f := range fields {
			num, ok := coin[f.key]
			if !ok {
				valid = false
				break
			}
			d, err := decimal.NewFromString(num.String())
			if err != nil {
				valid = false
				break
			}
			*f.dest = d
		}
		if valid {
			quotes[id] = quote
		}
	}

	return quotes, nil
}
