package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	IntentStatusPending   = "pending"
	IntentStatusSucceeded = "succeeded"
	IntentStatusFailed    = "failed"
)

// 意向状态机：pending 为唯一非终态
var validIntentTransitions = map[string][]string{
	IntentStatusPending: {IntentStatusSucceeded, IntentStatusFailed},
}

func CanIntentTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := validIntentTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// 风控决策
const (
	RiskDecisionAllow  = "allow"
	RiskDecisionReview = "review"
	RiskDecisionBlock  = "block"
)

// 风控原因码（对外返回的 machine-readable reason）
const (
	RiskReasonInvalidAmount = "invalid_amount"
	RiskReasonRateLimited   = "rate_limited"
	RiskReasonDailyLimit    = "daily_limit"
)

// TopupIntent 充值意向表
// (provider, provider_intent_id) 为天然幂等键，确认操作以它为准
type TopupIntent struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64           `gorm:"index;not null" json:"user_id"`
	Provider         string          `gorm:"type:varchar(32);not null;uniqueIndex:uk_provider_intent" json:"provider"`
	ProviderIntentID string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_provider_intent" json:"provider_intent_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency         string          `gorm:"type:varchar(8);not null" json:"currency"`
	Status           string          `gorm:"type:varchar(20);index;not null" json:"status"`
	RiskDecision     string          `gorm:"type:varchar(16);not null" json:"risk_decision"`
	RiskReason       string          `gorm:"type:varchar(64)" json:"risk_reason"`
	ClientIP         string          `gorm:"type:varchar(64)" json:"client_ip"`
	UserAgent        string          `gorm:"type:varchar(256)" json:"user_agent"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TopupIntent) TableName() string {
	return "topup_intent"
}

// ValidateTopupAmount 校验充值金额：大于0、不超过2位小数、落在配置边界内
func ValidateTopupAmount(amount, min, max decimal.Decimal) bool {
	if !amount.Equal(amount.Round(2)) {
		return false
	}
	if amount.LessThan(min) || amount.GreaterThan(max) {
		return false
	}
	return amount.IsPositive()
}
