package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kargopay/internal/config"
	"kargopay/internal/gateway"
	"kargopay/internal/infrastructure/lock"
	"kargopay/internal/model"
	"kargopay/internal/repository"
	"kargopay/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TopupService struct {
	cfg         *config.Config
	gateway     gateway.PaymentGateway
	risk        riskGate
	sideChannel eventSink
	walletRepo  walletStore
	topupRepo   topupIntentStore
	ledger      ledgerStore
	inTx        txRunner
	lockFor     func(provider, providerIntentID string) locker
}

func NewTopupService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, gw gateway.PaymentGateway) *TopupService {
	return &TopupService{
		cfg:         cfg,
		gateway:     gw,
		risk:        NewRiskEvaluator(db, cfg),
		sideChannel: NewSideChannel(db, cfg),
		walletRepo:  repository.NewWalletRepository(db),
		topupRepo:   repository.NewTopupRepository(db),
		ledger:      repository.NewTransactionRepository(db),
		inTx:        gormTxRunner(db),
		lockFor: func(provider, providerIntentID string) locker {
			return lock.NewConfirmLock(redisClient, provider, providerIntentID, uuid.NewString())
		},
	}
}

// RequestMeta 请求元数据，留档供风控审查
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

type CreateIntentResult struct {
	Provider         string          `json:"provider"`
	ProviderIntentID string          `json:"provider_intent_id"`
	ClientSecret     string          `json:"client_secret"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	RiskDecision     string          `json:"risk_decision"`
}

// CreateIntent 创建充值意向
// 流程：金额校验 -> 同步风控 -> 渠道开意向 -> 落库（pending）
// block 决策不产生任何副作用；review 放行但留档并发审计事件
func (s *TopupService) CreateIntent(ctx context.Context, userID int64, amount decimal.Decimal, meta RequestMeta) (*CreateIntentResult, error) {
	min := decimal.NewFromFloat(s.cfg.Business.TopupMinAmount)
	max := decimal.NewFromFloat(s.cfg.Business.TopupMaxAmount)
	if !model.ValidateTopupAmount(amount, min, max) {
		return nil, ErrInvalidAmount
	}

	riskResult, err := s.risk.Evaluate(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	if riskResult.Decision == model.RiskDecisionBlock {
		return nil, &RiskBlockedError{Reason: riskResult.Reason}
	}

	handle, err := s.gateway.CreatePaymentIntent(ctx, userID, amount, s.cfg.Business.Currency)
	if err != nil {
		return nil, fmt.Errorf("渠道开意向失败: %w", err)
	}

	intent := &model.TopupIntent{
		UserID:           userID,
		Provider:         handle.Provider,
		ProviderIntentID: handle.IntentID,
		Amount:           amount,
		Currency:         s.cfg.Business.Currency,
		Status:           model.IntentStatusPending,
		RiskDecision:     riskResult.Decision,
		RiskReason:       riskResult.Reason,
		ClientIP:         meta.ClientIP,
		UserAgent:        meta.UserAgent,
	}

	err = s.inTx(func(tx *gorm.DB) error {
		// 提前建户，确认阶段的入账一定有目标行
		if err := s.walletRepo.EnsureWallet(ctx, tx, userID); err != nil {
			return fmt.Errorf("初始化钱包失败: %w", err)
		}
		if err := s.topupRepo.Create(ctx, tx, intent); err != nil {
			return fmt.Errorf("落库充值意向失败: %w", err)
		}
		if riskResult.Decision == model.RiskDecisionReview {
			// review 结论不拦截，但要进后台审查视野
			s.sideChannel.WriteAuditLog(ctx, tx, userID, "topup_review_flagged", "topup_intent", handle.IntentID,
				map[string]interface{}{
					"amount": amount.StringFixed(2),
					"reason": riskResult.Reason,
				})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Topup] 创建充值意向: userID=%d, intent=%s, amount=%s, decision=%s",
		userID, handle.IntentID, amount.StringFixed(2), riskResult.Decision)

	return &CreateIntentResult{
		Provider:         handle.Provider,
		ProviderIntentID: handle.IntentID,
		ClientSecret:     handle.ClientSecret,
		Amount:           model.Round2(amount),
		Currency:         s.cfg.Business.Currency,
		RiskDecision:     riskResult.Decision,
	}, nil
}

type ConfirmIntentResult struct {
	ProviderIntentID string          `json:"provider_intent_id"`
	Amount           decimal.Decimal `json:"amount"`
	Status           string          `json:"status"`
}

// ConfirmIntent 确认充值意向并入账
// 幂等：同一 (provider, provider_intent_id) 最多入账一次；
// 分布式锁 + 行锁先行，幂等判断在锁内完成，webhook 重发并发到达也不会重复入账
func (s *TopupService) ConfirmIntent(ctx context.Context, userID int64, providerIntentID string) (*ConfirmIntentResult, error) {
	provider := s.providerName()

	confirmLock := s.lockFor(provider, providerIntentID)
	if err := confirmLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer confirmLock.Unlock(ctx)

	var result *ConfirmIntentResult
	err := s.inTx(func(tx *gorm.DB) error {
		intent, err := s.topupRepo.GetByProviderIntentIDForUpdate(ctx, tx, provider, providerIntentID)
		if err != nil {
			if errors.Is(err, repository.ErrIntentNotFound) {
				return ErrIntentNotFound
			}
			return err
		}

		if intent.UserID != userID {
			return ErrIntentForbidden
		}
		// 防御性校验：block 的意向本不该被创建出来
		if intent.RiskDecision == model.RiskDecisionBlock {
			return ErrIntentForbidden
		}

		// 幂等短路：已成功的意向直接返回缓存结果，不再触达渠道
		if intent.Status == model.IntentStatusSucceeded {
			result = &ConfirmIntentResult{
				ProviderIntentID: intent.ProviderIntentID,
				Amount:           model.Round2(intent.Amount),
				Status:           intent.Status,
			}
			return nil
		}
		// 状态机校验：只有 pending 可以继续推进，failed 等终态一律拒绝
		if !model.CanIntentTransitionTo(intent.Status, model.IntentStatusSucceeded) {
			return ErrPaymentNotCompleted
		}

		confirm, err := s.gateway.ConfirmPayment(ctx, providerIntentID)
		if err != nil {
			return fmt.Errorf("渠道确认失败: %w", err)
		}

		if !confirm.Succeeded {
			if err := s.topupRepo.MarkFailed(ctx, tx, intent.ID); err != nil {
				return fmt.Errorf("更新意向状态失败: %w", err)
			}
			return ErrPaymentNotCompleted
		}

		// 入账 + 流水 + 状态翻转必须同事务提交
		if _, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, intent.UserID); err != nil {
			return fmt.Errorf("锁定钱包失败: %w", err)
		}
		if err := s.walletRepo.Credit(ctx, tx, intent.UserID, intent.Amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        intent.UserID,
			Type:          model.TransactionTypeDeposit,
			Amount:        intent.Amount,
			Status:        model.TransactionStatusCompleted,
			Description:   fmt.Sprintf("充值入账-%s", intent.ProviderIntentID),
			ReferenceType: model.ReferenceTypeTopupIntent,
			ReferenceID:   intent.ProviderIntentID,
		}
		if err := s.ledger.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		now := time.Now()
		if err := s.topupRepo.MarkSucceeded(ctx, tx, intent.ID, now); err != nil {
			return fmt.Errorf("更新意向状态失败: %w", err)
		}

		s.sideChannel.WriteAuditLog(ctx, tx, intent.UserID, "topup_confirmed", "topup_intent", intent.ProviderIntentID,
			map[string]interface{}{"amount": intent.Amount.StringFixed(2)})
		s.sideChannel.CreateNotification(ctx, tx, intent.UserID, "wallet", "充值到账",
			fmt.Sprintf("%s %s 已入账", intent.Amount.StringFixed(2), intent.Currency), nil)

		result = &ConfirmIntentResult{
			ProviderIntentID: intent.ProviderIntentID,
			Amount:           model.Round2(intent.Amount),
			Status:           model.IntentStatusSucceeded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Topup] 确认充值: userID=%d, intent=%s, amount=%s", userID, providerIntentID, result.Amount.StringFixed(2))
	return result, nil
}

func (s *TopupService) providerName() string {
	if named, ok := s.gateway.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}
