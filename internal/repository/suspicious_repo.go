package repository

import (
	"context"
	"errors"
	"time"

	"kargopay/internal/model"

	"gorm.io/gorm"
)

var (
	ErrActivityNotFound = errors.New("可疑行为记录不存在")
)

type SuspiciousRepository struct {
	db *gorm.DB
}

func NewSuspiciousRepository(db *gorm.DB) *SuspiciousRepository {
	return &SuspiciousRepository{db: db}
}

func (r *SuspiciousRepository) Create(ctx context.Context, tx *gorm.DB, activity *model.SuspiciousActivity) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(activity).Error
}

func (r *SuspiciousRepository) GetByID(ctx context.Context, id int64) (*model.SuspiciousActivity, error) {
	var activity model.SuspiciousActivity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// GetLatestByUser 该用户最近一条检测记录，冷却判断用
func (r *SuspiciousRepository) GetLatestByUser(ctx context.Context, userID int64) (*model.SuspiciousActivity, error) {
	var activity model.SuspiciousActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

// ActivityFilter 列表过滤条件，零值字段不参与过滤
type ActivityFilter struct {
	RiskLevel    string
	ActivityType string
	Status       string
	UserID       int64
}

// List 过滤 + 按严重程度再按时间倒序 + 分页
func (r *SuspiciousRepository) List(ctx context.Context, filter ActivityFilter, page, pageSize int) ([]*model.SuspiciousActivity, int64, error) {
	var activities []*model.SuspiciousActivity
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SuspiciousActivity{})
	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", filter.RiskLevel)
	}
	if filter.ActivityType != "" {
		query = query.Where("activity_type = ?", filter.ActivityType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("FIELD(risk_level, 'low', 'medium', 'high', 'critical') DESC").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&activities).Error

	return activities, total, err
}

// UpdateStatus 状态流转，进入终态时盖 resolved_at / resolved_by
func (r *SuspiciousRepository) UpdateStatus(ctx context.Context, id int64, status, resolutionNotes string, adminID int64) (*model.SuspiciousActivity, error) {
	activity, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":           status,
		"resolution_notes": resolutionNotes,
	}
	if model.IsTerminalActivityStatus(status) {
		now := time.Now()
		updates["resolved_at"] = &now
		updates["resolved_by"] = adminID
	}

	err = r.db.WithContext(ctx).
		Model(&model.SuspiciousActivity{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, activity.ID)
}

// CountByRiskLevel 窗口内按风险等级计数
func (r *SuspiciousRepository) CountByRiskLevel(ctx context.Context, since time.Time) (map[string]int64, error) {
	return r.countGrouped(ctx, "risk_level", since)
}

// CountByActivityType 窗口内按行为类型计数
func (r *SuspiciousRepository) CountByActivityType(ctx context.Context, since time.Time) (map[string]int64, error) {
	return r.countGrouped(ctx, "activity_type", since)
}

func (r *SuspiciousRepository) countGrouped(ctx context.Context, column string, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Key   string
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.SuspiciousActivity{}).
		Select(column+" AS `key`, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Key] = row.Count
	}
	return result, nil
}

// CountActiveCritical 窗口内处于 active 的 critical 记录数
func (r *SuspiciousRepository) CountActiveCritical(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SuspiciousActivity{}).
		Where("risk_level = ? AND status = ? AND created_at >= ?",
			model.RiskLevelCritical, model.ActivityStatusActive, since).
		Count(&count).Error
	return count, err
}

// CountByStatus 窗口内按处理状态计数（resolved / false_positive 占比）
func (r *SuspiciousRepository) CountByStatus(ctx context.Context, since time.Time) (map[string]int64, error) {
	return r.countGrouped(ctx, "status", since)
}
