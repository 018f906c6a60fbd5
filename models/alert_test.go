package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConditionMet(t *testing.T) {
	target := decimal.RequireFromString("100.00")

	tests := []struct {
		name      string
		condition AlertCondition
		current   string
		want      bool
	}{
		{"above when higher", ConditionAbove, "100.01", true},
		{"above at exact target", ConditionAbove, "100.00", true},
		{"above when lower", ConditionAbove, "99.99", false},
		{"below when lower", ConditionBelow, "99.99", true},
		{"below at exact target", ConditionBelow, "100.00", true},
		{"below when higher", ConditionBelow, "100.01", false},
		{"unknown condition never fires", AlertCondition("between"), "100.00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.condition.Met(decimal.RequireFromString(tt.current), target)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssetTypeValid(t *testing.T) {
	assert.True(t, AssetCrypto.Valid())
	assert.True(t, AssetStock.Valid())
	assert.True(t, AssetForex.Valid())
	assert.False(t, AssetType("bond").Valid())
	assert.False(t, AssetType("").Valid())
}

func TestConditionValid(t *testing.T) {
	assert.True(t, ConditionAbove.Valid())
	assert.True(t, ConditionBelow.Valid())
	assert.False(t, AlertCondition("equal").Valid())
}
