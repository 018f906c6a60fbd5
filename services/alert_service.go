package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pricetracker/metrics"
	"pricetracker/models"
)

// ErrInvalidAlert marks a create request that fails validation.
var ErrInvalidAlert = errors.New("invalid alert")

// CheckReport summarises one evaluation cycle.
type CheckReport struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Skipped   int `json:"skipped"` // no price available this cycle
	Failed    int `json:"failed"`  // per-alert errors, isolated
}

// AlertService owns alert CRUD and the evaluation cycle.
type AlertService struct {
	db       *gorm.DB
	notifier Notifier
	logger   zerolog.Logger

	checking atomic.Bool
}

// NewAlertService creates an alert service.
func NewAlertService(db *gorm.DB, notifier Notifier, logger zerolog.Logger) *AlertService {
	return &AlertService{
		db:       db,
		notifier: notifier,
		logger:   logger.With().Str("component", "alert_service").Logger(),
	}
}

// GetAll returns all alerts, newest first.
func (s *AlertService) GetAll(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

// GetByID returns one alert or gorm.ErrRecordNotFound.
func (s *AlertService) GetByID(ctx context.Context, id uint) (models.Alert, error) {
	var alert models.Alert
	err := s.db.WithContext(ctx).First(&alert, id).Error
	return alert, err
}

// Create validates, normalizes and persists a new alert: asset type and
// condition lower-cased, symbol upper-cased, target strictly positive.
func (s *AlertService) Create(ctx context.Context, req models.CreateAlertRequest) (models.Alert, error) {
	assetType := models.AssetType(strings.ToLower(strings.TrimSpace(req.AssetType)))
	condition := models.AlertCondition(strings.ToLower(strings.TrimSpace(req.Condition)))

	if !assetType.Valid() {
		return models.Alert{}, fmt.Errorf("%w: unknown asset type %q", ErrInvalidAlert, req.AssetType)
	}
	if !condition.Valid() {
		return models.Alert{}, fmt.Errorf("%w: unknown condition %q", ErrInvalidAlert, req.Condition)
	}
	if !req.TargetPrice.IsPositive() {
		return models.Alert{}, fmt.Errorf("%w: target price must be positive", ErrInvalidAlert)
	}

	alert := models.Alert{
		AssetType:   assetType,
		Symbol:      normalizeSymbol(req.Symbol),
		Condition:   condition,
		TargetPrice: req.TargetPrice,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		WebhookUrl:  req.WebhookUrl,
		Email:       req.Email,
	}
	if alert.Symbol == "" {
		return models.Alert{}, fmt.Errorf("%w: symbol is required", ErrInvalidAlert)
	}

	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return models.Alert{}, fmt.Errorf("create alert: %w", err)
	}

	s.logger.Info().
		Uint("alert_id", alert.ID).
		Str("symbol", alert.Symbol).
		Str("condition", string(alert.Condition)).
		Str("target", alert.TargetPrice.String()).
		Msg("alert created")
	return alert, nil
}

// Delete removes an alert. Deleting an absent id is a no-op.
func (s *AlertService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete alert %d: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Uint("alert_id", id).Msg("alert deleted")
	}
	return nil
}

// CheckAlerts evaluates every active, untriggered alert against the
// latest stored prices. Reads bypass the cache. A triggered alert is
// persisted before its notification is attempted, so trigger flags
// survive a crash and firing stays at-most-once. Per-alert failures are
// isolated; the batch always runs to completion. A cycle already in
// flight is skipped.
func (s *AlertService) CheckAlerts(ctx context.Context) (CheckReport, error) {
	var report CheckReport

	if !s.checking.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("alert check already in flight, skipping cycle")
		return report, nil
	}
	defer s.checking.Store(false)

	var alerts []models.Alert
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND is_triggered = ?", true, false).
		Find(&alerts).Error; err != nil {
		return report, fmt.Errorf("load active alerts: %w", err)
	}

	s.logger.Info().Int("count", len(alerts)).Msg("checking active alerts")

	for i := range alerts {
		alert := &alerts[i]
		report.Checked++

		currentPrice, found, err := s.resolvePrice(ctx, alert)
		if err != nil {
			report.Failed++
			s.logger.Error().Err(err).Uint("alert_id", alert.ID).Msg("price resolution failed")
			continue
		}
		if !found {
			report.Skipped++ // no price for the symbol yet, try next cycle
			continue
		}

		if !alert.Condition.Met(currentPrice, alert.TargetPrice) {
			continue
		}

		now := time.Now().UTC()
		err = s.db.WithContext(ctx).Model(&models.Alert{}).
			Where("id = ?", alert.ID).
			Updates(map[string]interface{}{
				"is_triggered": true,
				"is_active":    false,
				"triggered_at": now,
			}).Error
		if err != nil {
			report.Failed++
			s.logger.Error().Err(err).Uint("alert_id", alert.ID).Msg("persisting trigger failed")
			continue
		}

		alert.IsTriggered = true
		alert.IsActive = false
		alert.TriggeredAt = &now
		report.Triggered++
		metrics.AlertsTriggered.Inc()

		s.notifier.Send(ctx, alert, currentPrice)

		s.logger.Info().
			Uint("alert_id", alert.ID).
			Str("symbol", alert.Symbol).
			Str("condition", string(alert.Condition)).
			Str("target", alert.TargetPrice.String()).
			Str("current", currentPrice.String()).
			Msg("alert triggered")
	}

	return report, nil
}

// resolvePrice looks up the current price for the alert's asset class.
// A missing record is not an error, just no decision this cycle.
func (s *AlertService) resolvePrice(ctx context.Context, alert *models.Alert) (decimal.Decimal, bool, error) {
	switch alert.AssetType {
	case models.AssetCrypto:
		var price models.CryptoPrice
		err := s.db.WithContext(ctx).Where("symbol = ?", alert.Symbol).First(&price).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return price.PriceUsd, err == nil, err

	case models.AssetStock:
		var price models.StockPrice
		err := s.db.WithContext(ctx).Where("symbol = ?", alert.Symbol).First(&price).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return price.Price, err == nil, err

	case models.AssetForex:
		var rate models.ForexRate
		err := s.db.WithContext(ctx).
			Where("base_currency = ? AND target_currency = ?", "USD", alert.Symbol).
			First(&rate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return rate.Rate, err == nil, err

	default:
		return decimal.Zero, false, fmt.Errorf("unknown asset type %q", alert.AssetType)
	}
}
