package repository

import (
	"context"
	"errors"
	"time"

	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrIntentNotFound = errors.New("充值意向不存在")
)

type TopupRepository struct {
	db *gorm.DB
}

func NewTopupRepository(db *gorm.DB) *TopupRepository {
	return &TopupRepository{db: db}
}

func (r *TopupRepository) Create(ctx context.Context, tx *gorm.DB, intent *model.TopupIntent) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(intent).Error
}

func (r *TopupRepository) GetByProviderIntentID(ctx context.Context, provider, providerIntentID string) (*model.TopupIntent, error) {
	var intent model.TopupIntent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_intent_id = ?", provider, providerIntentID).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}

// GetByProviderIntentIDForUpdate 行锁读取，幂等判断必须在锁内做
func (r *TopupRepository) GetByProviderIntentIDForUpdate(ctx context.Context, tx *gorm.DB, provider, providerIntentID string) (*model.TopupIntent, error) {
	var intent model.TopupIntent
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND provider_intent_id = ?", provider, providerIntentID).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}

// MarkSucceeded pending -> succeeded，盖确认时间戳
func (r *TopupRepository) MarkSucceeded(ctx context.Context, tx *gorm.DB, id int64, confirmedAt time.Time) error {
	result := tx.WithContext(ctx).
		Model(&model.TopupIntent{}).
		Where("id = ? AND status = ?", id, model.IntentStatusPending).
		Updates(map[string]interface{}{
			"status":       model.IntentStatusSucceeded,
			"confirmed_at": &confirmedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIntentNotFound
	}
	return nil
}

// MarkFailed pending -> failed，终态，不原地重试
func (r *TopupRepository) MarkFailed(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.TopupIntent{}).
		Where("id = ? AND status = ?", id, model.IntentStatusPending).
		Update("status", model.IntentStatusFailed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIntentNotFound
	}
	return nil
}

// CountRecentByUser 频率窗口内的意向数（风控用）
func (r *TopupRepository) CountRecentByUser(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TopupIntent{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// SumRecentByUser 窗口内 pending + succeeded 意向金额合计（日限额用）
func (r *TopupRepository) SumRecentByUser(ctx context.Context, userID int64, since time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.TopupIntent{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND created_at >= ? AND status IN ?",
			userID, since, []string{model.IntentStatusPending, model.IntentStatusSucceeded}).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// GetStalePending 超时未支付的意向，由后台任务扫为失败
func (r *TopupRepository) GetStalePending(ctx context.Context, before time.Time, limit int) ([]*model.TopupIntent, error) {
	var intents []*model.TopupIntent
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.IntentStatusPending, before).
		Limit(limit).
		Find(&intents).Error
	return intents, err
}
