package service

import (
	"testing"

	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDetectSuspiciousActivity(t *testing.T) {
	t.Run("Clean User", func(t *testing.T) {
		findings := DetectSuspiciousActivity(DetectorInput{
			OffersLastHour:   3,
			AvgOfferPrice24h: decimal.NewFromInt(1500),
			OfferCount24h:    3,
			DistinctRoutes7d: 2,
			DisputeCount30d:  0,
		})
		assert.Empty(t, findings)
	})

	t.Run("Rapid Offers", func(t *testing.T) {
		findings := DetectSuspiciousActivity(DetectorInput{
			OffersLastHour:   51,
			AvgOfferPrice24h: decimal.NewFromInt(1500),
			OfferCount24h:    51,
		})
		assert.Len(t, findings, 1)
		assert.Equal(t, model.ActivityTypeRapidOffers, findings[0].ActivityType)
		assert.Equal(t, model.RiskLevelHigh, findings[0].RiskLevel)
	})

	t.Run("Rapid Offers Threshold Not Inclusive", func(t *testing.T) {
		findings := DetectSuspiciousActivity(DetectorInput{
			OffersLastHour:   50,
			AvgOfferPrice24h: decimal.NewFromInt(1500),
			OfferCount24h:    50,
		})
		assert.Empty(t, findings)
	})

	t.Run("Pricing Too Low", func(t *testing.T) {
		findings := DetectSuspiciousActivity(DetectorInput{
			AvgOfferPrice24h: decimal.NewFromInt(99),
			OfferCount24h:    5,
		})
		assert.Len(t, findings, 1)
		assert.Equal(t, model.ActivityTypeUnusualPricing, findings[0].ActivityType)
		assert.Equal(t, model.RiskLevelMedium, findings[0].RiskLevel)
	})

	t.Run("Pricing Too High Escalates To Critical", func(t *testing.T) {
		findings := DetectSuspiciousActivity(DetectorInput{
			AvgOfferPrice24h: decimal.NewFromFloat(50000.01),
			OfferCount24h:    2,
		})
		assert.Len(t, findings, 1)
		assert.Equal(t, model.ActivityTypeUnusualPricing, findings[0].ActivityType)
		assert.Equal(t, model.RiskLevelCritical, findings[0].RiskLevel)
	})

	t.Run("Pricing Skipped Without Offers", func(t *testing.T) {
		// 窗口内无报价时均价为0，不能触发低价规则
		findings := DetectSuspiciousActivity(DetectorInput{
			AvgOfferPrice24h: decimal.Zero,
			OfferCount24h:    0,
		})
		assert.Empty(t, findings)
	})

	t.Run("Route Diversity", func(t *testing.T) {
		findings := DetectSuspiciousActivity(DetectorInput{
			AvgOfferPrice24h: decimal.NewFromInt(1500),
			OfferCount24h:    3,
			DistinctRoutes7d: 21,
		})
		assert.Len(t, findings, 1)
		assert.Equal(t, model.ActivityTypeLocationAnomaly, findings[0].ActivityType)
		assert.Equal(t, model.RiskLevelMedium, findings[0].RiskLevel)
	})

	t.Run("Repeated Disputes", func(t *testing.T) {
		findings := DetectSuspiciousActivity(DetectorInput{
			AvgOfferPrice24h: decimal.NewFromInt(1500),
			OfferCount24h:    3,
			DisputeCount30d:  6,
		})
		assert.Len(t, findings, 1)
		assert.Equal(t, model.ActivityTypeRepeatedDisputes, findings[0].ActivityType)
		assert.Equal(t, model.RiskLevelHigh, findings[0].RiskLevel)
	})

	t.Run("Findings Accumulate", func(t *testing.T) {
		// 规则彼此独立，全部命中时产出4条
		findings := DetectSuspiciousActivity(DetectorInput{
			OffersLastHour:   80,
			AvgOfferPrice24h: decimal.NewFromInt(60000),
			OfferCount24h:    80,
			DistinctRoutes7d: 25,
			DisputeCount30d:  9,
		})
		assert.Len(t, findings, 4)

		types := make([]string, 0, len(findings))
		for _, f := range findings {
			types = append(types, f.ActivityType)
		}
		assert.ElementsMatch(t, []string{
			model.ActivityTypeRapidOffers,
			model.ActivityTypeUnusualPricing,
			model.ActivityTypeLocationAnomaly,
			model.ActivityTypeRepeatedDisputes,
		}, types)
	})
}

func TestHighestRiskLevel(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, "", HighestRiskLevel(nil))
	})

	t.Run("Picks Critical Over High", func(t *testing.T) {
		findings := []Finding{
			{RiskLevel: model.RiskLevelMedium},
			{RiskLevel: model.RiskLevelCritical},
			{RiskLevel: model.RiskLevelHigh},
		}
		assert.Equal(t, model.RiskLevelCritical, HighestRiskLevel(findings))
	})

	t.Run("Single Finding", func(t *testing.T) {
		findings := []Finding{{RiskLevel: model.RiskLevelLow}}
		assert.Equal(t, model.RiskLevelLow, HighestRiskLevel(findings))
	})
}
