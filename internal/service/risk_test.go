package service

import (
	"testing"

	"kargopay/internal/config"
	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testBusinessConfig() config.BusinessConfig {
	return config.DefaultBusiness()
}

func TestEvaluateTopupRisk(t *testing.T) {
	cfg := testBusinessConfig()

	t.Run("Allow", func(t *testing.T) {
		result := EvaluateTopupRisk(&cfg, RiskInput{
			Amount:            decimal.NewFromInt(25000),
			RecentIntentCount: 0,
			DailyTotal:        decimal.Zero,
		})
		assert.Equal(t, model.RiskDecisionAllow, result.Decision)
		assert.Empty(t, result.Reason)
	})

	t.Run("Amount Boundaries", func(t *testing.T) {
		tests := []struct {
			name     string
			amount   decimal.Decimal
			decision string
		}{
			{"minimum accepted", decimal.NewFromInt(1), model.RiskDecisionAllow},
			{"maximum accepted", decimal.NewFromInt(50000), model.RiskDecisionAllow},
			{"zero rejected", decimal.Zero, model.RiskDecisionBlock},
			{"negative rejected", decimal.NewFromInt(-10), model.RiskDecisionBlock},
			{"above maximum rejected", decimal.NewFromFloat(50000.01), model.RiskDecisionBlock},
			{"three decimals rejected", decimal.NewFromFloat(10.005), model.RiskDecisionBlock},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := EvaluateTopupRisk(&cfg, RiskInput{Amount: tt.amount})
				assert.Equal(t, tt.decision, result.Decision)
				if tt.decision == model.RiskDecisionBlock {
					assert.Equal(t, model.RiskReasonInvalidAmount, result.Reason)
				}
			})
		}
	})

	t.Run("Velocity Block", func(t *testing.T) {
		// 窗口内已有5笔，第6笔被拦
		result := EvaluateTopupRisk(&cfg, RiskInput{
			Amount:            decimal.NewFromInt(100),
			RecentIntentCount: 5,
		})
		assert.Equal(t, model.RiskDecisionBlock, result.Decision)
		assert.Equal(t, model.RiskReasonRateLimited, result.Reason)
	})

	t.Run("Velocity Below Threshold", func(t *testing.T) {
		result := EvaluateTopupRisk(&cfg, RiskInput{
			Amount:            decimal.NewFromInt(100),
			RecentIntentCount: 4,
		})
		assert.Equal(t, model.RiskDecisionAllow, result.Decision)
	})

	t.Run("Daily Cap Review Not Block", func(t *testing.T) {
		// 累计超限只降级为 review，意向仍然放行
		result := EvaluateTopupRisk(&cfg, RiskInput{
			Amount:     decimal.NewFromInt(50000),
			DailyTotal: decimal.NewFromInt(180000),
		})
		assert.Equal(t, model.RiskDecisionReview, result.Decision)
		assert.Equal(t, model.RiskReasonDailyLimit, result.Reason)
	})

	t.Run("Daily Cap Exact Boundary Allowed", func(t *testing.T) {
		// 正好压线不触发
		result := EvaluateTopupRisk(&cfg, RiskInput{
			Amount:     decimal.NewFromInt(50000),
			DailyTotal: decimal.NewFromInt(150000),
		})
		assert.Equal(t, model.RiskDecisionAllow, result.Decision)
	})

	t.Run("Velocity Takes Precedence Over Daily Cap", func(t *testing.T) {
		// 规则按固定顺序评估，block 短路
		result := EvaluateTopupRisk(&cfg, RiskInput{
			Amount:            decimal.NewFromInt(50000),
			RecentIntentCount: 10,
			DailyTotal:        decimal.NewFromInt(999999),
		})
		assert.Equal(t, model.RiskDecisionBlock, result.Decision)
		assert.Equal(t, model.RiskReasonRateLimited, result.Reason)
	})
}
