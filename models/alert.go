package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType enumerates the asset classes an alert can watch.
type AssetType string

const (
	AssetCrypto AssetType = "crypto"
	AssetStock  AssetType = "stock"
	AssetForex  AssetType = "forex"
)

// Valid reports whether the asset type is one of the known classes.
func (t AssetType) Valid() bool {
	switch t {
	case AssetCrypto, AssetStock, AssetForex:
		return true
	}
	return false
}

// AlertCondition enumerates trigger conditions.
type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
)

// Valid reports whether the condition is known.
func (c AlertCondition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Met reports whether the condition holds for the given prices.
// Both boundaries are closed: an exact match triggers.
func (c AlertCondition) Met(current, target decimal.Decimal) bool {
	switch c {
	case ConditionAbove:
		return current.GreaterThanOrEqual(target)
	case ConditionBelow:
		return current.LessThanOrEqual(target)
	}
	return false
}

// Alert is a one-shot standing price watch. Once triggered it is
// permanently deactivated and never evaluated again.
type Alert struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AssetType   AssetType       `gorm:"index:idx_alert_scan;type:varchar(16)" json:"asset_type"`
	Symbol      string          `gorm:"index:idx_alert_scan" json:"symbol"`
	Condition   AlertCondition  `gorm:"type:varchar(16)" json:"condition"`
	TargetPrice decimal.Decimal `gorm:"type:decimal(18,8)" json:"target_price"`
	IsActive    bool            `gorm:"index:idx_alert_scan" json:"is_active"`
	IsTriggered bool            `json:"is_triggered"`
	TriggeredAt *time.Time      `json:"triggered_at"`
	CreatedAt   time.Time       `json:"created_at"`
	WebhookUrl  string          `json:"webhook_url,omitempty"`
	Email       string          `json:"email,omitempty"`
}

// CreateAlertRequest is the POST /api/alerts body.
type CreateAlertRequest struct {
	AssetType   string          `json:"asset_type" binding:"required"`
	Symbol      string          `json:"symbol" binding:"required"`
	Condition   string          `json:"condition" binding:"required"`
	TargetPrice decimal.Decimal `json:"target_price" binding:"required"`
	WebhookUrl  string          `json:"webhook_url"`
	Email       string          `json:"email"`
}
