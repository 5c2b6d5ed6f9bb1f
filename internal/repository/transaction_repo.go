package repository

import (
	"context"
	"errors"

	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create 追加流水。(reference_type, reference_id) 唯一，
// 重复确认导致的重复插入按 insert-or-ignore 处理
func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.WalletTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reference_type"}, {Name: "reference_id"}},
			DoNothing: true,
		}).
		Create(trans).Error
}

func (r *TransactionRepository) GetByReference(ctx context.Context, referenceType, referenceID string) (*model.WalletTransaction, error) {
	var trans model.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	var transactions []*model.WalletTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WalletTransaction{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// ListRecentByReferenceType 最近的某类关联流水（承运端看与报价挂钩的资金变动）
func (r *TransactionRepository) ListRecentByReferenceType(ctx context.Context, userID int64, referenceType string, limit int) ([]*model.WalletTransaction, error) {
	var transactions []*model.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND reference_type = ?", userID, referenceType).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

// SumByType 按流水类型和状态聚合金额（生命周期佣金/退款合计）
func (r *TransactionRepository) SumByType(ctx context.Context, userID int64, transactionType, status string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&model.WalletTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND type = ?", userID, transactionType)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
