package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricetracker/metrics"
	"pricetracker/models"
)

// Notifier delivers a triggered-alert notification. Implementations must
// never fail the caller: the alert is already marked triggered and stays
// that way whatever happens to delivery.
type Notifier interface {
	Send(ctx context.Context, alert *models.Alert, currentPrice decimal.Decimal)
}

// webhookPayload is the JSON body POSTed to an alert's webhook URL.
type webhookPayload struct {
	AlertID      uint            `json:"alert_id"`
	AssetType    string          `json:"asset_type"`
	Symbol       string          `json:"symbol"`
	Condition    string          `json:"condition"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TriggeredAt  *time.Time      `json:"triggered_at"`
	Message      string          `json:"message"`
}

// NotificationService sends webhook and email notifications. Channels
// are attempted independently; every failure is logged and swallowed.
type NotificationService struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewNotificationService creates a dispatcher with a bounded delivery
// timeout.
func NewNotificationService(timeout time.Duration, logger zerolog.Logger) *NotificationService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotificationService{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "notification_service").Logger(),
	}
}

// Send attempts every configured channel for the alert.
func (n *NotificationService) Send(ctx context.Context, alert *models.Alert, currentPrice decimal.Decimal) {
	if alert.WebhookUrl != "" {
		n.sendWebhook(ctx, alert, currentPrice)
	}
	if alert.Email != "" {
		n.sendEmail(alert, currentPrice)
	}
}

func (n *NotificationService) sendWebhook(ctx context.Context, alert *models.Alert, currentPrice decimal.Decimal) {
	payload := webhookPayload{
		AlertID:      alert.ID,
		AssetType:    string(alert.AssetType),
		Symbol:       alert.Symbol,
		Condition:    string(alert.Condition),
		TargetPrice:  alert.TargetPrice,
		CurrentPrice: currentPrice,
		TriggeredAt:  alert.TriggeredAt,
		Message: fmt.Sprintf("Price alert triggered! %s is %s %s (current: %s)",
			alert.Symbol, alert.Condition, alert.TargetPrice.StringFixed(2), currentPrice.StringFixed(2)),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error().Err(err).Uint("alert_id", alert.ID).Msg("marshal webhook payload")
		metrics.Notifications.WithLabelValues("webhook", "error").Inc()
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, alert.WebhookUrl, bytes.NewReader(body))
	if err != nil {
		n.logger.Error().Err(err).Uint("alert_id", alert.ID).Msg("build webhook request")
		metrics.Notifications.WithLabelValues("webhook", "error").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error().Err(err).Uint("alert_id", alert.ID).Msg("webhook delivery failed")
		metrics.Notifications.WithLabelValues("webhook", "error").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Error().Int("status", resp.StatusCode).Uint("alert_id", alert.ID).Msg("webhook delivery rejected")
		metrics.Notifications.WithLabelValues("webhook", "error").Inc()
		return
	}

	n.logger.Info().Uint("alert_id", alert.ID).Str("url", alert.WebhookUrl).Msg("webhook notification sent")
	metrics.Notifications.WithLabelValues("webhook", "ok").Inc()
}

// sendEmail logs delivery intent. Wiring an actual provider (SES,
// SendGrid) replaces this body without changing the dispatcher contract.
func (n *NotificationService) sendEmail(alert *models.Alert, currentPrice decimal.Decimal) {
	n.logger.Info().
		Uint("alert_id", alert.ID).
		Str("email", alert.Email).
		Str("current_price", currentPrice.String()).
		Msg("email notification would be sent")
	metrics.Notifications.WithLabelValues("email", "ok").Inc()
}

var _ Notifier = (*NotificationService)(nil)
