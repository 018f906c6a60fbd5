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

// ForexService serves cached forex reads and runs the rate refresh
// cycle. All tracked rates are quoted against USD.
type ForexService struct {
	db      *gorm.DB
	cache   cache.Store
	fetcher *datafetcher.ExchangeRateClient
	targets []string
	ttl     time.Duration
	logger  zerolog.Logger

	refreshing atomic.Bool
}

// NewForexService creates a forex service.
func NewForexService(db *gorm.DB, c cache.Store, fetcher *datafetcher.ExchangeRateClient, targets []string, ttl time.Duration, logger zerolog.Logger) *ForexService {
	return &ForexService{
		db:      db,
		cache:   c,
		fetcher: fetcher,
		targets: targets,
		ttl:     ttl,
		logger:  logger.With().Str("component", "forex_service").Logger(),
	}
}

// GetAll returns every USD-based rate ordered by target currency.
func (s *ForexService) GetAll(ctx context.Context) ([]models.ForexRate, error) {
	return cache.Fetch(ctx, s.cache, cache.KeyForexAll, s.ttl, func() ([]models.ForexRate, error) {
		var rates []models.ForexRate
		err := s.db.WithContext(ctx).
			Where("base_currency = ?", "USD").
			Order("target_currency ASC").
			Find(&rates).Error
		return rates, err
	})
}

// GetRate returns one ordered currency pair or gorm.ErrRecordNotFound.
func (s *ForexService) GetRate(ctx context.Context, base, target string) (models.ForexRate, error) {
	key := cache.KeyForexPair(base, target)
	return cache.Fetch(ctx, s.cache, key, s.ttl, func() (models.ForexRate, error) {
		var rate models.ForexRate
		err := s.db.WithContext(ctx).
			Where("base_currency = ? AND target_currency = ?", normalizeSymbol(base), normalizeSymbol(target)).
			First(&rate).Error
		return rate, err
	})
}

// RefreshRates fetches latest/USD and upserts every configured target
// currency present in the payload, then invalidates derived cache keys.
// Same cycle semantics as the other refresh workers.
func (s *ForexService) RefreshRates(ctx context.Context) (int, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("refresh already in flight, skipping cycle")
		return 0, nil
	}
	defer s.refreshing.Store(false)

	rates, err := s.fetcher.FetchUSDRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh forex rates: %w", err)
	}

	updated := 0
	now := time.Now().UTC()
	invalidate := []string{cache.KeyForexAll}

	for _, target := range s.targets {
		target = normalizeSymbol(target)
		value, ok := rates[target]
		if !ok {
			continue // missing from payload this cycle, not an error
		}

		fitted, err := models.FitDecimal(value, models.ForexRateDigits, models.ForexRateScale)
		if err != nil {
			s.logger.Warn().Err(err).Str("target", target).Msg("dropping rate with out-of-range value")
			continue
		}

		row := models.ForexRate{
			BaseCurrency:   "USD",
			TargetCurrency: target,
			Rate:           fitted,
			LastUpdated:    now,
		}
		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "base_currency"}, {Name: "target_currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "last_updated"}),
		}).Create(&row).Error
		if err != nil {
			return updated, fmt.Errorf("upsert forex USD/%s: %w", target, err)
		}

		updated++
		invalidate = append(invalidate, cache.KeyForexPair("USD", target))
	}

	if err := s.cache.Delete(ctx, invalidate...); err != nil {
		s.logger.Warn().Err(err).Msg("cache invalidation failed")
	}

	s.logger.Info().Int("updated", updated).Msg("forex rates refreshed")
	return updated, nil
}
