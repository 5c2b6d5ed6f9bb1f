package repository

import (
	"context"
	"time"

	"kargopay/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MarketplaceRepository 市场侧数据的只读统计 + 升级标记写入
type MarketplaceRepository struct {
	db *gorm.DB
}

func NewMarketplaceRepository(db *gorm.DB) *MarketplaceRepository {
	return &MarketplaceRepository{db: db}
}

// CountOffersSince 窗口内报价数
func (r *MarketplaceRepository) CountOffersSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// AvgOfferPriceSince 窗口内报价均价及样本数
func (r *MarketplaceRepository) AvgOfferPriceSince(ctx context.Context, userID int64, since time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Avg   decimal.Decimal
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Select("COALESCE(AVG(price), 0) AS avg, COUNT(*) AS count").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return row.Avg, row.Count, nil
}

// CountDistinctRoutesSince 窗口内去重后的取送城市对数量
func (r *MarketplaceRepository) CountDistinctRoutesSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Shipment{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Distinct("pickup_city", "delivery_city").
		Count(&count).Error
	return count, err
}

// CountDisputesSince 窗口内用户作为任一方的纠纷数
func (r *MarketplaceRepository) CountDisputesSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Dispute{}).
		Where("(complainant_id = ? OR respondent_id = ?) AND created_at >= ?", userID, userID, since).
		Count(&count).Error
	return count, err
}

// ListAdminUserIDs 全部管理员，critical 升级时逐个通知
func (r *MarketplaceRepository) ListAdminUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("role = ?", model.RoleAdmin).
		Pluck("id", &ids).Error
	return ids, err
}

// CreateAdminFlag 写入升级标记
func (r *MarketplaceRepository) CreateAdminFlag(ctx context.Context, tx *gorm.DB, flag *model.AdminFlag) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(flag).Error
}
