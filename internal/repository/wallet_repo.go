package repository

import (
	"context"
	"errors"

	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrWalletNotFound    = errors.New("钱包不存在")
	ErrBalanceNotEnough  = errors.New("可用余额不足")
	ErrReservedNotEnough = errors.New("冻结金额不足")
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// EnsureWallet 幂等建户：唯一索引冲突直接忽略，并发安全
func (r *WalletRepository) EnsureWallet(ctx context.Context, tx *gorm.DB, userID int64) error {
	if tx == nil {
		tx = r.db
	}
	wallet := &model.Wallet{
		UserID:          userID,
		Balance:         decimal.Zero,
		ReservedBalance: decimal.Zero,
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(wallet).Error
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// GetByUserIDForUpdate 行锁读取，余额变更必须在事务内先走这里
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Wallet, error) {
	var wallet model.Wallet
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// Credit 入账，调用方负责持有行锁与事务
func (r *WalletRepository) Credit(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// Reserve 冻结：可用余额转入 reserved_balance，余额不足不落库
func (r *WalletRepository) Reserve(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal) error {
	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("user_id = ? AND balance - reserved_balance >= ?", userID, amount).
		Update("reserved_balance", gorm.Expr("reserved_balance + ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		wallet, err := r.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if wallet.Available().LessThan(amount) {
			return ErrBalanceNotEnough
		}
		return ErrWalletNotFound
	}
	return nil
}

// Release 释放冻结；capture=true 时同时扣减余额（佣金实扣）
func (r *WalletRepository) Release(ctx context.Context, tx *gorm.DB, userID int64, amount decimal.Decimal, capture bool) error {
	updates := map[string]interface{}{
		"reserved_balance": gorm.Expr("reserved_balance - ?", amount),
	}
	if capture {
		updates["balance"] = gorm.Expr("balance - ?", amount)
	}

	result := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("user_id = ? AND reserved_balance >= ?", userID, amount).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		wallet, err := r.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if wallet.ReservedBalance.LessThan(amount) {
			return ErrReservedNotEnough
		}
		return ErrWalletNotFound
	}
	return nil
}
