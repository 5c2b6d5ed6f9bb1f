package model

import (
	"time"
)

// 可疑行为类型
const (
	ActivityTypeRapidOffers      = "rapid_offers"
	ActivityTypeUnusualPricing   = "unusual_pricing"
	ActivityTypeAccountTakeover  = "account_takeover"
	ActivityTypeFakeShipments    = "fake_shipments"
	ActivityTypePaymentFraud     = "payment_fraud"
	ActivityTypeLocationAnomaly  = "location_anomaly"
	ActivityTypeRepeatedDisputes = "repeated_disputes"
	ActivityTypeBulkRegistration = "bulk_registration"
)

// 风险等级
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// RiskLevelRank 严重程度排序权重，列表按 critical > high > medium > low 排列
func RiskLevelRank(level string) int {
	switch level {
	case RiskLevelCritical:
		return 4
	case RiskLevelHigh:
		return 3
	case RiskLevelMedium:
		return 2
	case RiskLevelLow:
		return 1
	default:
		return 0
	}
}

// 处理状态
const (
	ActivityStatusActive        = "active"
	ActivityStatusInvestigating = "investigating"
	ActivityStatusResolved      = "resolved"
	ActivityStatusFalsePositive = "false_positive"
)

func IsValidActivityStatus(status string) bool {
	switch status {
	case ActivityStatusActive, ActivityStatusInvestigating,
		ActivityStatusResolved, ActivityStatusFalsePositive:
		return true
	}
	return false
}

// IsTerminalActivityStatus 进入终态时需要盖章 resolved_at / resolved_by
func IsTerminalActivityStatus(status string) bool {
	return status == ActivityStatusResolved || status == ActivityStatusFalsePositive
}

// SuspiciousActivity 可疑行为记录表
// 扫描产生，管理员流转状态，永不物理删除
type SuspiciousActivity struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64      `gorm:"index;not null" json:"user_id"`
	ActivityType    string     `gorm:"type:varchar(32);index;not null" json:"activity_type"`
	RiskLevel       string     `gorm:"type:varchar(16);index;not null" json:"risk_level"`
	Details         string     `gorm:"type:varchar(512);not null" json:"details"`
	Status          string     `gorm:"type:varchar(20);index;not null;default:active" json:"status"`
	CreatedBy       int64      `gorm:"not null" json:"created_by"` // 发起扫描的管理员，系统扫描为 0
	ResolutionNotes string     `gorm:"type:varchar(512)" json:"resolution_notes"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolvedBy      *int64     `json:"resolved_by"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SuspiciousActivity) TableName() string {
	return "suspicious_activity"
}
