package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pricetracker/cache"
	"pricetracker/models"
	"pricetracker/services/datafetcher"
)

// StockService serves cached stock reads and runs the stock refresh
// cycle against a pluggable quote source.
type StockService struct {
	db      *gorm.DB
	cache   cache.Store
	source  datafetcher.StockSource
	symbols []string
	ttl     time.Duration
	logger  zerolog.Logger

	refreshing atomic.Bool
}

// NewStockService creates a stock service.
func NewStockService(db *gorm.DB, c cache.Store, source datafetcher.StockSource, symbols []string, ttl time.Duration, logger zerolog.Logger) *StockService {
	return &StockService{
		db:      db,
		cache:   c,
		source:  source,
		symbols: symbols,
		ttl:     ttl,
		logger:  logger.With().Str("component", "stock_service").Logger(),
	}
}

// GetAll returns every tracked stock ordered by symbol.
func (s *StockService) GetAll(ctx context.Context) ([]models.StockPrice, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyStocksAll, s.ttl, func() ([]models.StockPrice, error) {
		var prices []models.StockPrice
		err := s.db.WithContext(ctx).Order("symbol ASC").Find(&prices).Error
		return prices, err
	})
}

// GetBySymbol returns one stock or gorm.ErrRecordNotFound.
func (s *StockService) GetBySymbol(ctx context.Context, symbol string) (models.StockPrice, error) {
	key := cache.KeyStockSymbol(symbol)
	return cache.Fetch(ctx, s.cache, key, s.ttl, func() (models.StockPrice, error) {
		var price models.StockPrice
		err := s.db.WithContext(ctx).Where("symbol = ?", normalizeSymbol(symbol)).First(&price).Error
		return price, err
	})
}

// RefreshPrices pulls quotes from the configured source and upserts
// them, invalidating derived cache keys afterwards. Semantics match the
// crypto cycle: partial payloads are fine, whole-fetch failures mutate
// nothing, concurrent cycles are skipped.
func (s *StockService) RefreshPrices(ctx context.Context) (int, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("refresh already in flight, skipping cycle")
		return 0, nil
	}
	defer s.refreshing.Store(false)

	quotes, err := s.source.FetchQuotes(ctx, s.symbols)
	if err != nil {
		return 0, fmt.Errorf("refresh stock prices: %w", err)
	}

	updated := 0
	now := time.Now().UTC()
	invalidate := []string{cache.KeyStocksAll}

	for _, quote := range quotes {
		row, err := stockRow(quote, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", quote.Symbol).Msg("dropping quote with out-of-range value")
			continue
		}

		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "exchange", "price", "day_high", "day_low", "open",
				"previous_close", "change_percent", "volume", "last_updated",
			}),
		}).Create(&row).Error
		if err != nil {
			return updated, fmt.Errorf("upsert stock %s: %w", row.Symbol, err)
		}

		updated++
		invalidate = append(invalidate, cache.KeyStockSymbol(row.Symbol))
	}

	if err := s.cache.Delete(ctx, invalidate...); err != nil {
		s.logger.Warn().Err(err).Msg("cache invalidation failed")
	}

	s.logger.Info().Int("updated", updated).Msg("stock prices refreshed")
	return updated, nil
}

func stockRow(q datafetcher.StockQuote, now time.Time) (models.StockPrice, error) {
	row := models.StockPrice{
		Symbol:      normalizeSymbol(q.Symbol),
		Name:        q.Name,
		Exchange:    q.Exchange,
		Volume:      q.Volume,
		LastUpdated: now,
	}

	var err error
	if row.Price, err = models.FitDecimal(q.Price, models.StockPriceDigits, models.StockPriceScale); err != nil {
		return row, err
	}
	if row.DayHigh, err = models.FitDecimal(q.DayHigh, models.StockPriceDigits, models.StockPriceScale); err != nil {
		return row, err
	}
	if row.DayLow, err = models.FitDecimal(q.DayLow, models.StockPriceDigits, models.StockPriceScale); err != nil {
		return row, err
	}
	if row.Open, err = models.FitDecimal(q.Open, models.StockPriceDigits, models.StockPriceScale); err != nil {
		return row, err
	}
	if row.PreviousClose, err = models.FitDecimal(q.PreviousClose, models.StockPriceDigits, models.StockPriceScale); err != nil {
		return row, err
	}
	if row.ChangePercent, err = models.FitDecimal(q.ChangePercent, models.PercentDigits, models.PercentScale); err != nil {
		return row, err
	}
	return row, nil
}
