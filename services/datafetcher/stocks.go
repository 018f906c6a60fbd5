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

// StockQuote is one parsed stock quote.
type StockQuote struct {
	Symbol        string
	Name          string
	Exchange      string
	Price         decimal.Decimal
	DayHigh       decimal.Decimal
	DayLow        decimal.Decimal
	Open          decimal.Decimal
	PreviousClose decimal.Decimal
	ChangePercent decimal.Decimal
	Volume        int64
}

// StockSource supplies stock quotes. The refresh pipeline only depends on
// this interface, so the seed source can be swapped for a live feed
// without touching the rest of the pipeline.
type StockSource interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]StockQuote, error)
}

// SeedSource serves a fixed quote set. It is the default source: the
// deployment has no stock market data subscription.
type SeedSource struct{}

// NewSeedSource returns the fixed-set source.
func NewSeedSource() *SeedSource { return &SeedSource{} }

var seedQuotes = []StockQuote{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ", Price: dec("178.50"), DayHigh: dec("180.25"), DayLow: dec("177.10"), Open: dec("179.00"), PreviousClose: dec("177.80"), ChangePercent: dec("0.39"), Volume: 52384000},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ", Price: dec("420.75"), DayHigh: dec("425.30"), DayLow: dec("418.50"), Open: dec("422.00"), PreviousClose: dec("419.80"), ChangePercent: dec("0.23"), Volume: 21456000},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ", Price: dec("142.65"), DayHigh: dec("144.20"), DayLow: dec("141.80"), Open: dec("143.50"), PreviousClose: dec("143.10"), ChangePercent: dec("-0.31"), Volume: 18234000},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Exchange: "NASDAQ", Price: dec("178.90"), DayHigh: dec("180.50"), DayLow: dec("177.20"), Open: dec("179.30"), PreviousClose: dec("178.00"), ChangePercent: dec("0.51"), Volume: 35678000},
	{Symbol: "TSLA", Name: "Tesla Inc.", Exchange: "NASDAQ", Price: dec("248.30"), DayHigh: dec("252.80"), DayLow: dec("245.10"), Open: dec("250.00"), PreviousClose: dec("246.50"), ChangePercent: dec("0.73"), Volume: 98765000},
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// FetchQuotes returns the seed quotes for the requested symbols. Symbols
// not in the seed set are skipped, mirroring a partial upstream payload.
// An empty symbol list returns the whole set.
func (s *SeedSource) FetchQuotes(_ context.Context, symbols []string) ([]StockQuote, error) {
	if len(symbols) == 0 {
		out := make([]StockQuote, len(seedQuotes))
		copy(out, seedQuotes)
		return out, nil
	}

	wanted := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		wanted[strings.ToUpper(sym)] = true
	}
	var out []StockQuote
	for _, q := range seedQuotes {
		if wanted[q.Symbol] {
			out = append(out, q)
		}
	}
	return out, nil
}

// AlphaVantageSource is a live StockSource backed by the Alpha Vantage
// GLOBAL_QUOTE endpoint, one request per symbol. A symbol whose request or
// payload fails is skipped for the cycle; the whole fetch errors only when
// nothing could be retrieved.
type AlphaVantageSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAlphaVantageSource builds the live source.
func NewAlphaVantageSource(baseURL, apiKey string, timeout time.Duration) *AlphaVantageSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AlphaVantageSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *AlphaVantageSource) FetchQuotes(ctx context.Context, symbols []string) ([]StockQuote, error) {
	var (
		out     []StockQuote
		lastErr error
	)
	for _, symbol := range symbols {
		quote, err := s.fetchOne(ctx, strings.ToUpper(symbol))
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, quote)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (s *AlphaVantageSource) fetchOne(ctx context.Context, symbol string) (StockQuote, error) {
	endpoint := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		s.baseURL, url.QueryEscape(symbol), url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StockQuote{}, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return StockQuote{}, fmt.Errorf("%w: alphavantage %s: %v", ErrUpstream, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StockQuote{}, fmt.Errorf("%w: alphavantage %s returned status %d", ErrUpstream, symbol, resp.StatusCode)
	}

	var payload struct {
		GlobalQuote struct {
			Symbol        string `json:"01. symbol"`
			Open          string `json:"02. open"`
			High          string `json:"03. high"`
			Low           string `json:"04. low"`
			Price         string `json:"05. price"`
			Volume        string `json:"06. volume"`
			PreviousClose string `json:"08. previous close"`
			ChangePercent string `json:"10. change percent"`
		} `json:"Global Quote"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return StockQuote{}, fmt.Errorf("%w: decode alphavantage payload: %v", ErrParse, err)
	}
	gq := payload.GlobalQuote
	if gq.Symbol == "" || gq.Price == "" {
		return StockQuote{}, fmt.Errorf("%w: alphavantage payload empty for %s", ErrParse, symbol)
	}

	quote := StockQuote{Symbol: strings.ToUpper(gq.Symbol), Name: strings.ToUpper(gq.Symbol)}
	fields := []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{gq.Price, &quote.Price},
		{gq.High, &quote.DayHigh},
		{gq.Low, &quote.DayLow},
		{gq.Open, &quote.Open},
		{gq.PreviousClose, &quote.PreviousClose},
		{strings.TrimSuffix(gq.ChangePercent, "%"), &quote.ChangePercent},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(strings.TrimSpace(f.raw))
		if err != nil {
			return StockQuote{}, fmt.Errorf("%w: alphavantage field %q for %s", ErrParse, f.raw, symbol)
		}
		*f.dest = d
	}
	if v, err := decimal.NewFromString(gq.Volume); err == nil {
		quote.Volume = v.IntPart()
	}

	return quote, nil
}

var (
	_ StockSource = (*SeedSource)(nil)
	_ StockSource = (*AlphaVantageSource)(nil)
)
