package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Declared (precision, scale) per numeric column. Values are rounded to
// the column scale before persisting; values whose integer part exceeds
// the declared precision are rejected rather than silently truncated.
const (
	CryptoPriceScale   = 8
	CryptoPriceDigits  = 18
	StockPriceScale    = 4
	StockPriceDigits   = 18
	MarketValueScale   = 2
	MarketValueDigits  = 20
	PercentScale       = 4
	PercentDigits      = 10
	ForexRateScale     = 8
	ForexRateDigits    = 18
)

// FitDecimal rounds d to the given scale and verifies the result fits in
// a decimal(digits, scale) column.
func FitDecimal(d decimal.Decimal, digits, scale int32) (decimal.Decimal, error) {
	rounded := d.Round(scale)
	limit := decimal.New(1, digits-scale) // 10^(digits-scale)
	if rounded.Abs().GreaterThanOrEqual(limit) {
		return decimal.Zero, fmt.Errorf("value %s exceeds decimal(%d,%d)", d, digits, scale)
	}
	return rounded, nil
}
