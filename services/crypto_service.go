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

// CryptoService serves cached crypto reads and runs the crypto refresh
// cycle.
type CryptoService struct {
	db       *gorm.DB
	cache    cache.Store
	fetcher  *datafetcher.CoinGeckoClient
	coinIDs  []string
	ttl      time.Duration
	topLimit int
	logger   zerolog.Logger

	refreshing atomic.Bool
}

// NewCryptoService creates a crypto service.
func NewCryptoService(db *gorm.DB, c cache.Store, fetcher *datafetcher.CoinGeckoClient, coinIDs []string, ttl time.Duration, topLimit int, logger zerolog.Logger) *CryptoService {
	if topLimit <= 0 {
		topLimit = 20
	}
	return &CryptoService{
		db:       db,
		cache:    c,
		fetcher:  fetcher,
		coinIDs:  coinIDs,
		ttl:      ttl,
		topLimit: topLimit,
		logger:   logger.With().Str("component", "crypto_service").Logger(),
	}
}

// GetAll returns every tracked cryptocurrency ordered by market cap,
// highest first.
func (s *CryptoService) GetAll(ctx context.Context) ([]models.CryptoPrice, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyCryptoAll, s.ttl, func() ([]models.CryptoPrice, error) {
		var prices []models.CryptoPrice
		err := s.db.WithContext(ctx).Order("market_cap_usd DESC").Find(&prices).Error
		return prices, err
	})
}

// GetTop returns the n highest-market-cap cryptocurrencies. n is clamped
// to [1, topLimit].
func (s *CryptoService) GetTop(ctx context.Context, n int) ([]models.CryptoPrice, error) {
	if n < 1 {
		n = 1
	}
	if n > s.topLimit {
		n = s.topLimit
	}
	return cache.Fetch(ctx, s.cache, cache.KeyCryptoTop(n), s.ttl, func() ([]models.CryptoPrice, error) {
		var prices []models.CryptoPrice
		err := s.db.WithContext(ctx).Order("market_cap_usd DESC").Limit(n).Find(&prices).Error
		return prices, err
	})
}

// GetBySymbol returns one cryptocurrency or gorm.ErrRecordNotFound.
func (s *CryptoService) GetBySymbol(ctx context.Context, symbol string) (models.CryptoPrice, error) {
	key := cache.KeyCryptoSymbol(symbol)
	return cache.Fetch(ctx, s.cache, key, s.ttl, func() (models.CryptoPrice, error) {
		var price models.CryptoPrice
		err := s.db.WithContext(ctx).Where("symbol = ?", normalizeSymbol(symbol)).First(&price).Error
		return price, err
	})
}

// RefreshPrices fetches the configured coin ids from CoinGecko, upserts
// every symbol present in the payload and invalidates the cache keys
// derived from the changed rows. A fetch or parse failure aborts the
// cycle with the store untouched. A cycle already in flight is skipped.
func (s *CryptoService) RefreshPrices(ctx context.Context) (int, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("refresh already in flight, skipping cycle")
		return 0, nil
	}
	defer s.refreshing.Store(false)

	quotes, err := s.fetcher.FetchPrices(ctx, s.coinIDs)
	if err != nil {
		return 0, fmt.Errorf("refresh crypto prices: %w", err)
	}

	updated := 0
	now := time.Now().UTC()
	invalidate := []string{cache.KeyCryptoAll}

	for _, id := range s.coinIDs {
		quote, ok := quotes[id]
		if !ok {
			continue // missing from payload this cycle, not an error
		}

		row, err := cryptoRow(quote, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", quote.Symbol).Msg("dropping quote with out-of-range value")
			continue
		}

		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "price_usd", "price_eur", "market_cap_usd",
				"volume_24h_usd", "change_percent_24h", "last_updated",
			}),
		}).Create(&row).Error
		if err != nil {
			return updated, fmt.Errorf("upsert crypto %s: %w", row.Symbol, err)
		}

		updated++
		invalidate = append(invalidate, cache.KeyCryptoSymbol(row.Symbol))
	}

	// Store writes are durable before any cache key disappears, so a
	// racing read can only repopulate with post-refresh data.
	if err := s.cache.Delete(ctx, invalidate...); err != nil {
		s.logger.Warn().Err(err).Msg("cache invalidation failed")
	}
	if err := s.cache.DeletePrefix(ctx, "crypto:top:"); err != nil {
		s.logger.Warn().Err(err).Msg("cache invalidation failed")
	}

	s.logger.Info().Int("updated", updated).Msg("crypto prices refreshed")
	return updated, nil
}

func cryptoRow(q datafetcher.CryptoQuote, now time.Time) (models.CryptoPrice, error) {
	row := models.CryptoPrice{Symbol: q.Symbol, Name: q.Name, LastUpdated: now}

	var err error
	if row.PriceUsd, err = models.FitDecimal(q.PriceUsd, models.CryptoPriceDigits, models.CryptoPriceScale); err != nil {
		return row, err
	}
	if row.PriceEur, err = models.FitDecimal(q.PriceEur, models.CryptoPriceDigits, models.CryptoPriceScale); err != nil {
		return row, err
	}
	if row.MarketCapUsd, err = models.FitDecimal(q.MarketCapUsd, models.MarketValueDigits, models.MarketValueScale); err != nil {
		return row, err
	}
	if row.Volume24hUsd, err = models.FitDecimal(q.Volume24hUsd, models.MarketValueDigits, models.MarketValueScale); err != nil {
		return row, err
	}
	if row.ChangePercent24h, err = models.FitDecimal(q.ChangePercent24h, models.PercentDigits, models.PercentScale); err != nil {
		return row, err
	}
	return row, nil
}
