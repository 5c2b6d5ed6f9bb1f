package service

import (
	"context"
	"time"

	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 服务层依赖的最小接口面。生产实现是 repository/lock 包的具体类型，
// 服务只声明自己用到的方法。

type walletStore interface {
	EnsureWallet(ctx context.Context, tx *gorm.DB, userID int64) error
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error)
	Credit(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error
	Reserve(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error
	Release(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal, capture bool) error
}

type topupIntentStore interface {
	Create(ctx context.Context, tx *gorm.DB, intent *model.TopupIntent) error
	GetByProviderIntentIDForUpdate(ctx context.Context, tx *gorm.DB, provider, providerIntentID string) (*model.TopupIntent, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, id int64, confirmedAt time.Time) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id int64) error
}

type ledgerStore interface {
	Create(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction) error
	GetByReference(ctx context.Context, referenceType, referenceID string) (*model.WalletTransaction, error)
	ListRecentByReferenceType(ctx context.Context, userID int64, referenceType string, limit int) ([]*model.WalletTransaction, error)
	SumByType(ctx context.Context, userID int64, transactionType, status string) (decimal.Decimal, error)
}

type riskGate interface {
	Evaluate(ctx context.Context, userID int64, amount decimal.Decimal) (RiskResult, error)
}

type eventSink interface {
	WriteAuditLog(ctx context.Context, tx *gorm.DB, userID int64, action, entity, entityID string, metadata map[string]interface{})
	CreateNotification(ctx context.Context, tx *gorm.DB, userID int64, notifyType, title, message string, metadata map[string]interface{})
}

type locker interface {
	Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error
	Unlock(ctx context.Context) error
}

// txRunner 统一事务入口
type txRunner func(fn func(tx *gorm.DB) error) error

func gormTxRunner(db *gorm.DB) txRunner {
	return func(fn func(tx *gorm.DB) error) error {
		return db.Transaction(fn)
	}
}
