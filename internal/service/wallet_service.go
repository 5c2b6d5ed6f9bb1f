package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kargopay/internal/config"
	"kargopay/internal/infrastructure/lock"
	"kargopay/internal/model"
	"kargopay/internal/repository"
	"kargopay/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletService struct {
	cfg         *config.Config
	sideChannel eventSink
	walletRepo  walletStore
	ledger      ledgerStore
	inTx        txRunner
	lockFor     func(userID int64) locker
}

func NewWalletService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WalletService {
	return &WalletService{
		cfg:         cfg,
		sideChannel: NewSideChannel(db, cfg),
		walletRepo:  repository.NewWalletRepository(db),
		ledger:      repository.NewTransactionRepository(db),
		inTx:        gormTxRunner(db),
		lockFor: func(userID int64) locker {
			return lock.NewWalletLock(redisClient, userID, uuid.NewString())
		},
	}
}

type BalanceResult struct {
	Balance          decimal.Decimal `json:"balance"`
	ReservedBalance  decimal.Decimal `json:"reserved_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// GetBalance 查余额，钱包不存在时懒建一个零余额钱包
func (s *WalletService) GetBalance(ctx context.Context, userID int64) (*BalanceResult, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrWalletNotFound) {
			return nil, err
		}
		if err := s.walletRepo.EnsureWallet(ctx, nil, userID); err != nil {
			return nil, fmt.Errorf("初始化钱包失败: %w", err)
		}
		wallet, err = s.walletRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	return &BalanceResult{
		Balance:          model.Round2(wallet.Balance),
		ReservedBalance:  model.Round2(wallet.ReservedBalance),
		AvailableBalance: wallet.Available(),
	}, nil
}

// CarrierSummary 承运端账面总览
type CarrierSummary struct {
	Balance            decimal.Decimal            `json:"balance"`
	ReservedBalance    decimal.Decimal            `json:"reserved_balance"`
	AvailableBalance   decimal.Decimal            `json:"available_balance"`
	PendingCommission  decimal.Decimal            `json:"pending_commission"`
	TotalCommission    decimal.Decimal            `json:"total_commission"`
	TotalRefunded      decimal.Decimal            `json:"total_refunded"`
	RecentOfferEntries []*model.WalletTransaction `json:"recent_offer_entries"`
}

// GetCarrierSummary 承运方(nakliyeci)账面：余额、冻结、待结佣金、
// 生命周期佣金/退款合计、最近与报价挂钩的流水
func (s *WalletService) GetCarrierSummary(ctx context.Context, userID int64) (*CarrierSummary, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	pendingCommission, err := s.ledger.SumByType(ctx, userID, model.TransactionTypeCommissionCapture, model.TransactionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("查询待结佣金失败: %w", err)
	}

	totalCommission, err := s.ledger.SumByType(ctx, userID, model.TransactionTypeCommissionCapture, "")
	if err != nil {
		return nil, fmt.Errorf("查询佣金合计失败: %w", err)
	}

	totalRefunded, err := s.ledger.SumByType(ctx, userID, model.TransactionTypeRefund, "")
	if err != nil {
		return nil, fmt.Errorf("查询退款合计失败: %w", err)
	}

	recent, err := s.ledger.ListRecentByReferenceType(ctx, userID, model.ReferenceTypeOffer, 10)
	if err != nil {
		return nil, fmt.Errorf("查询报价流水失败: %w", err)
	}

	return &CarrierSummary{
		Balance:          balance.Balance,
		ReservedBalance:  balance.ReservedBalance,
		AvailableBalance: balance.AvailableBalance,
		// 冻结流水按出账记负数，账面字段取正展示
		PendingCommission:  model.Round2(pendingCommission.Neg()),
		TotalCommission:    model.Round2(totalCommission.Neg()),
		TotalRefunded:      model.Round2(totalRefunded),
		RecentOfferEntries: recent,
	}, nil
}

// CaptureCommission 佣金冻结：可用余额划入冻结金额，流水状态 PENDING
// 同一 (offer) 幂等，重复请求被流水唯一键挡下后直接返回
func (s *WalletService) CaptureCommission(ctx context.Context, userID int64, amount decimal.Decimal, offerID string) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}

	walletLock := s.lockFor(userID)
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer walletLock.Unlock(ctx)

	err := s.inTx(func(tx *gorm.DB) error {
		existing, err := s.ledger.GetByReference(ctx, model.ReferenceTypeOffer, offerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil // 重复请求，流水已存在
		}

		if _, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.walletRepo.Reserve(ctx, tx, userID, amount); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return ErrBalanceNotEnough
			}
			return err
		}

		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			Type:          model.TransactionTypeCommissionCapture,
			Amount:        amount.Neg(),
			Status:        model.TransactionStatusPending,
			Description:   fmt.Sprintf("佣金冻结-offer-%s", offerID),
			ReferenceType: model.ReferenceTypeOffer,
			ReferenceID:   offerID,
		}
		if err := s.ledger.Create(ctx, tx, transaction); err != nil {
			return err
		}

		s.sideChannel.WriteAuditLog(ctx, tx, userID, "commission_captured", "offer", offerID,
			map[string]interface{}{"amount": amount.StringFixed(2)})
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[Wallet] 佣金冻结: userID=%d, offer=%s, amount=%s", userID, offerID, amount.StringFixed(2))
	return nil
}

// ReleaseCommission 佣金释放：解除冻结并退回可用余额
func (s *WalletService) ReleaseCommission(ctx context.Context, userID int64, amount decimal.Decimal, offerID string) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}

	walletLock := s.lockFor(userID)
	if err := walletLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer walletLock.Unlock(ctx)

	err := s.inTx(func(tx *gorm.DB) error {
		if _, err := s.walletRepo.GetByUserIDForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.walletRepo.Release(ctx, tx, userID, amount, false); err != nil {
			return err
		}

		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			Type:          model.TransactionTypeCommissionRelease,
			Amount:        amount,
			Status:        model.TransactionStatusCompleted,
			Description:   fmt.Sprintf("佣金释放-offer-%s", offerID),
			ReferenceType: model.ReferenceTypeOffer,
			ReferenceID:   fmt.Sprintf("%s:release", offerID),
		}
		if err := s.ledger.Create(ctx, tx, transaction); err != nil {
			return err
		}

		s.sideChannel.WriteAuditLog(ctx, tx, userID, "commission_released", "offer", offerID,
			map[string]interface{}{"amount": amount.StringFixed(2)})
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[Wallet] 佣金释放: userID=%d, offer=%s, amount=%s", userID, offerID, amount.StringFixed(2))
	return nil
}
