package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateTopupAmount(t *testing.T) {
	min := decimal.NewFromInt(1)
	max := decimal.NewFromInt(50000)

	tests := []struct {
		name   string
		amount decimal.Decimal
		valid  bool
	}{
		{"normal amount", decimal.NewFromFloat(250.50), true},
		{"minimum boundary", decimal.NewFromInt(1), true},
		{"maximum boundary", decimal.NewFromInt(50000), true},
		{"zero", decimal.Zero, false},
		{"negative", decimal.NewFromInt(-5), false},
		{"below minimum", decimal.NewFromFloat(0.99), false},
		{"above maximum", decimal.NewFromFloat(50000.01), false},
		{"three decimal places", decimal.NewFromFloat(10.005), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateTopupAmount(tt.amount, min, max))
		})
	}
}

func TestCanIntentTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		current string
		target  string
		allowed bool
	}{
		{"pending to succeeded", IntentStatusPending, IntentStatusSucceeded, true},
		{"pending to failed", IntentStatusPending, IntentStatusFailed, true},
		{"succeeded is terminal", IntentStatusSucceeded, IntentStatusFailed, false},
		{"failed is terminal", IntentStatusFailed, IntentStatusSucceeded, false},
		{"unknown status", "UNKNOWN", IntentStatusSucceeded, false},
		{"pending to pending", IntentStatusPending, IntentStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanIntentTransitionTo(tt.current, tt.target))
		})
	}
}
