package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CryptoPrice is the latest known quote for one cryptocurrency.
// One row per symbol; refresh cycles update in place.
type CryptoPrice struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Symbol           string          `gorm:"uniqueIndex;not null" json:"symbol"`
	Name             string          `json:"name"`
	PriceUsd         decimal.Decimal `gorm:"type:decimal(18,8)" json:"price_usd"`
	PriceEur         decimal.Decimal `gorm:"type:decimal(18,8)" json:"price_eur"`
	MarketCapUsd     decimal.Decimal `gorm:"type:decimal(20,2)" json:"market_cap_usd"`
	Volume24hUsd     decimal.Decimal `gorm:"column:volume_24h_usd;type:decimal(20,2)" json:"volume_24h_usd"`
	ChangePercent24h decimal.Decimal `gorm:"column:change_percent_24h;type:decimal(10,4)" json:"change_percent_24h"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// StockPrice is the latest known quote for one stock.
type StockPrice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `gorm:"uniqueIndex;not null" json:"symbol"`
	Name          string          `json:"name"`
	Exchange      string          `json:"exchange"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4)" json:"price"`
	DayHigh       decimal.Decimal `gorm:"type:decimal(18,4)" json:"day_high"`
	DayLow        decimal.Decimal `gorm:"type:decimal(18,4)" json:"day_low"`
	Open          decimal.Decimal `gorm:"type:decimal(18,4)" json:"open"`
	PreviousClose decimal.Decimal `gorm:"type:decimal(18,4)" json:"previous_close"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"change_percent"`
	Volume        int64           `json:"volume"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// ForexRate is the latest known rate for one ordered currency pair.
type ForexRate struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	BaseCurrency   string          `gorm:"uniqueIndex:idx_currency_pair;not null" json:"base_currency"`
	TargetCurrency string          `gorm:"uniqueIndex:idx_currency_pair;not null" json:"target_currency"`
	Rate           decimal.Decimal `gorm:"type:decimal(18,8)" json:"rate"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// Migrate runs database migrations for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&CryptoPrice{},
		&StockPrice{},
		&ForexRate{},
		&Alert{},
	)
}
