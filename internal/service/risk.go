package service

import (
	"context"
	"fmt"
	"time"

	"kargopay/internal/config"
	"kargopay/internal/model"
	"kargopay/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RiskInput 风控决策输入，由历史查询聚合而来
type RiskInput struct {
	Amount            decimal.Decimal
	RecentIntentCount int64           // 频率窗口内的意向数
	DailyTotal        decimal.Decimal // 24小时窗口内 pending+succeeded 金额合计
}

// RiskResult 风控结论
type RiskResult struct {
	Decision string
	Reason   string
}

// RiskBlockedError 风控拦截，携带原因码返回给调用方
type RiskBlockedError struct {
	Reason string
}

func (e *RiskBlockedError) Error() string {
	return "风控拦截: " + e.Reason
}

func (e *RiskBlockedError) Unwrap() error {
	return ErrRiskBlocked
}

// EvaluateTopupRisk 按固定顺序评估规则，block 即短路；
// review 不拦截，只记录供事后审查
//  1. 金额合法性（边界 + 2位小数）
//  2. 频率：窗口内意向数达到上限 -> block / rate_limited
//  3. 日限额：累计 + 本笔超出上限 -> review / daily_limit
func EvaluateTopupRisk(cfg *config.BusinessConfig, in RiskInput) RiskResult {
	min := decimal.NewFromFloat(cfg.TopupMinAmount)
	max := decimal.NewFromFloat(cfg.TopupMaxAmount)
	if !model.ValidateTopupAmount(in.Amount, min, max) {
		return RiskResult{Decision: model.RiskDecisionBlock, Reason: model.RiskReasonInvalidAmount}
	}

	if in.RecentIntentCount >= cfg.VelocityMaxIntents {
		return RiskResult{Decision: model.RiskDecisionBlock, Reason: model.RiskReasonRateLimited}
	}

	dailyCap := decimal.NewFromFloat(cfg.DailyCapAmount)
	if in.DailyTotal.Add(in.Amount).GreaterThan(dailyCap) {
		return RiskResult{Decision: model.RiskDecisionReview, Reason: model.RiskReasonDailyLimit}
	}

	return RiskResult{Decision: model.RiskDecisionAllow}
}

// RiskEvaluator 负责拉取历史聚合后调用纯决策函数
type RiskEvaluator struct {
	topupRepo *repository.TopupRepository
	cfg       *config.Config
}

func NewRiskEvaluator(db *gorm.DB, cfg *config.Config) *RiskEvaluator {
	return &RiskEvaluator{
		topupRepo: repository.NewTopupRepository(db),
		cfg:       cfg,
	}
}

func (e *RiskEvaluator) Evaluate(ctx context.Context, userID int64, amount decimal.Decimal) (RiskResult, error) {
	now := time.Now()
	velocitySince := now.Add(-time.Duration(e.cfg.Business.VelocityWindowMinutes) * time.Minute)
	dailySince := now.Add(-time.Duration(e.cfg.Business.DailyCapWindowHours) * time.Hour)

	recentCount, err := e.topupRepo.CountRecentByUser(ctx, userID, velocitySince)
	if err != nil {
		return RiskResult{}, fmt.Errorf("查询意向频率失败: %w", err)
	}

	dailyTotal, err := e.topupRepo.SumRecentByUser(ctx, userID, dailySince)
	if err != nil {
		return RiskResult{}, fmt.Errorf("查询日累计金额失败: %w", err)
	}

	return EvaluateTopupRisk(&e.cfg.Business, RiskInput{
		Amount:            amount,
		RecentIntentCount: recentCount,
		DailyTotal:        dailyTotal,
	}), nil
}
