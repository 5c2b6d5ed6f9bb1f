package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"kargopay/internal/config"
	"kargopay/internal/model"
	"kargopay/internal/repository"
	"kargopay/pkg/idgen"

	"gorm.io/gorm"
)

type ScanService struct {
	db             *gorm.DB
	cfg            *config.Config
	detector       *Detector
	sideChannel    *SideChannel
	suspiciousRepo *repository.SuspiciousRepository
	marketRepo     *repository.MarketplaceRepository
}

func NewScanService(db *gorm.DB, cfg *config.Config) *ScanService {
	return &ScanService{
		db:             db,
		cfg:            cfg,
		detector:       NewDetector(db),
		sideChannel:    NewSideChannel(db, cfg),
		suspiciousRepo: repository.NewSuspiciousRepository(db),
		marketRepo:     repository.NewMarketplaceRepository(db),
	}
}

type ScanResult struct {
	UserID     int64                       `json:"user_id"`
	Detections []*model.SuspiciousActivity `json:"detections"`
	ScannedAt  time.Time                   `json:"scanned_at"`
}

// CooldownError 冷却期未过，携带距上次扫描的小时数
type CooldownError struct {
	HoursSinceLast float64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("距上次扫描仅 %.1f 小时", e.HoursSinceLast)
}

func (e *CooldownError) Unwrap() error {
	return ErrScanCooldown
}

// ScanUser 单用户扫描
// 冷却检查以该用户最近一条检测记录为准，forceScan 跳过；
// critical 结论自动建升级标记并逐个通知管理员（旁路，失败不阻断）
func (s *ScanService) ScanUser(ctx context.Context, userID int64, forceScan bool, adminID int64) (*ScanResult, error) {
	if !forceScan {
		latest, err := s.suspiciousRepo.GetLatestByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		cooldown := time.Duration(s.cfg.Business.ScanCooldownHours) * time.Hour
		if latest != nil && time.Since(latest.CreatedAt) < cooldown {
			return nil, &CooldownError{HoursSinceLast: time.Since(latest.CreatedAt).Hours()}
		}
	}

	findings, err := s.detector.Run(ctx, userID)
	if err != nil {
		return nil, err
	}

	activities, err := s.persistFindings(ctx, userID, adminID, findings, model.RiskLevelRank(model.RiskLevelLow))
	if err != nil {
		return nil, err
	}

	for _, activity := range activities {
		if activity.RiskLevel == model.RiskLevelCritical {
			s.escalate(ctx, activity, adminID)
		}
	}

	// 扫描摘要进审计日志，尽力而为
	s.sideChannel.WriteAuditLog(ctx, nil, adminID, "suspicious_activity_scan", "user", fmt.Sprintf("%d", userID),
		map[string]interface{}{
			"finding_count": len(activities),
			"highest_risk":  HighestRiskLevel(findings),
			"forced":        forceScan,
		})

	return &ScanResult{
		UserID:     userID,
		Detections: activities,
		ScannedAt:  time.Now(),
	}, nil
}

// BulkScanEntry 批量扫描的单用户结果，出错不熔断整批
type BulkScanEntry struct {
	UserID       int64  `json:"user_id"`
	FindingCount int    `json:"finding_count"`
	HighestRisk  string `json:"highest_risk,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BulkScan 批量扫描，上限由配置约束
// 刻意不做冷却检查：管理员主动批量复扫意味着要求全量重跑；
// 只持久化 medium 及以上的结论
func (s *ScanService) BulkScan(ctx context.Context, userIDs []int64, adminID int64) ([]BulkScanEntry, error) {
	if len(userIDs) == 0 {
		return nil, ErrBulkScanEmpty
	}
	if len(userIDs) > s.cfg.Business.BulkScanMaxUsers {
		return nil, ErrBulkScanTooLarge
	}

	entries := make([]BulkScanEntry, 0, len(userIDs))
	for _, userID := range userIDs {
		entry := BulkScanEntry{UserID: userID}

		findings, err := s.detector.Run(ctx, userID)
		if err != nil {
			entry.Error = err.Error()
			entries = append(entries, entry)
			continue
		}

		activities, err := s.persistFindings(ctx, userID, adminID, findings, model.RiskLevelRank(model.RiskLevelMedium))
		if err != nil {
			entry.Error = err.Error()
			entries = append(entries, entry)
			continue
		}

		for _, activity := range activities {
			if activity.RiskLevel == model.RiskLevelCritical {
				s.escalate(ctx, activity, adminID)
			}
		}

		entry.FindingCount = len(activities)
		entry.HighestRisk = HighestRiskLevel(findings)
		entries = append(entries, entry)
	}

	log.Printf("[Scan] 批量扫描完成: users=%d, adminID=%d", len(userIDs), adminID)
	return entries, nil
}

// persistFindings 落库结论，minRank 以下的丢弃
func (s *ScanService) persistFindings(ctx context.Context, userID, adminID int64, findings []Finding, minRank int) ([]*model.SuspiciousActivity, error) {
	activities := make([]*model.SuspiciousActivity, 0, len(findings))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, f := range findings {
			if model.RiskLevelRank(f.RiskLevel) < minRank {
				continue
			}
			activity := &model.SuspiciousActivity{
				UserID:       userID,
				ActivityType: f.ActivityType,
				RiskLevel:    f.RiskLevel,
				Details:      f.Details,
				Status:       model.ActivityStatusActive,
				CreatedBy:    adminID,
			}
			if err := s.suspiciousRepo.Create(ctx, tx, activity); err != nil {
				return fmt.Errorf("落库检测结论失败: %w", err)
			}
			activities = append(activities, activity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// escalate critical 结论升级：建标记 + 通知全体管理员
// 全程旁路语义，任何失败只记日志
func (s *ScanService) escalate(ctx context.Context, activity *model.SuspiciousActivity, adminID int64) {
	flag := &model.AdminFlag{
		FlagNo:    idgen.GenerateFlagNo(),
		UserID:    activity.UserID,
		FlagType:  activity.ActivityType,
		Reason:    activity.Details,
		Status:    model.FlagStatusOpen,
		CreatedBy: adminID,
	}
	if err := s.marketRepo.CreateAdminFlag(ctx, nil, flag); err != nil {
		log.Printf("[Scan] 创建升级标记失败: userID=%d, type=%s, err=%v", activity.UserID, activity.ActivityType, err)
	}

	adminIDs, err := s.marketRepo.ListAdminUserIDs(ctx)
	if err != nil {
		log.Printf("[Scan] 查询管理员列表失败: %v", err)
		return
	}
	for _, id := range adminIDs {
		s.sideChannel.CreateNotification(ctx, nil, id, "fraud_alert", "Critical 风险告警",
			fmt.Sprintf("用户 %d 触发 %s（critical）", activity.UserID, activity.ActivityType),
			map[string]interface{}{"activity_id": activity.ID})
	}
}

// ListActivities 过滤 + 分页查询
func (s *ScanService) ListActivities(ctx context.Context, filter repository.ActivityFilter, page, pageSize int) ([]*model.SuspiciousActivity, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.suspiciousRepo.List(ctx, filter, page, pageSize)
}

// UpdateStatus 管理员流转检测记录状态
func (s *ScanService) UpdateStatus(ctx context.Context, activityID int64, status, resolutionNotes string, adminID int64) (*model.SuspiciousActivity, error) {
	if !model.IsValidActivityStatus(status) {
		return nil, ErrInvalidStatus
	}

	activity, err := s.suspiciousRepo.UpdateStatus(ctx, activityID, status, resolutionNotes, adminID)
	if err != nil {
		if err == repository.ErrActivityNotFound {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}

	s.sideChannel.WriteAuditLog(ctx, nil, adminID, "suspicious_activity_status_update", "suspicious_activity",
		fmt.Sprintf("%d", activityID), map[string]interface{}{"status": status})

	return activity, nil
}

// StatsOverview 可疑行为统计总览
type StatsOverview struct {
	ByRiskLevel       map[string]int64 `json:"by_risk_level"`       // 近30天
	ByActivityType    map[string]int64 `json:"by_activity_type"`    // 近30天
	ActiveCritical24h int64            `json:"active_critical_24h"` // 近24小时
	TotalFindings30d  int64            `json:"total_findings_30d"`
	Accuracy          float64          `json:"accuracy"`            // resolved / total，百分比一位小数
	FalsePositiveRate float64          `json:"false_positive_rate"` // false_positive / total
}

func (s *ScanService) GetStatsOverview(ctx context.Context) (*StatsOverview, error) {
	now := time.Now()
	since30d := now.Add(-30 * 24 * time.Hour)
	since24h := now.Add(-24 * time.Hour)

	byLevel, err := s.suspiciousRepo.CountByRiskLevel(ctx, since30d)
	if err != nil {
		return nil, err
	}
	byType, err := s.suspiciousRepo.CountByActivityType(ctx, since30d)
	if err != nil {
		return nil, err
	}
	activeCritical, err := s.suspiciousRepo.CountActiveCritical(ctx, since24h)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.suspiciousRepo.CountByStatus(ctx, since30d)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, count := range byStatus {
		total += count
	}

	return &StatsOverview{
		ByRiskLevel:       byLevel,
		ByActivityType:    byType,
		ActiveCritical24h: activeCritical,
		TotalFindings30d:  total,
		Accuracy:          RatePercent(byStatus[model.ActivityStatusResolved], total),
		FalsePositiveRate: RatePercent(byStatus[model.ActivityStatusFalsePositive], total),
	}, nil
}

// RatePercent 占比换算为一位小数的百分比，总数为0时返回0
func RatePercent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(int64(float64(part)/float64(total)*1000+0.5)) / 10
}
