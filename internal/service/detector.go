package service

import (
	"context"
	"fmt"
	"time"

	"kargopay/internal/model"
	"kargopay/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 检测规则阈值
var (
	rapidOfferThreshold     = int64(50)                 // 1小时内报价数
	priceLowThreshold       = decimal.NewFromInt(100)   // 24小时均价下界
	priceHighThreshold      = decimal.NewFromInt(50000) // 24小时均价上界
	routeDiversityThreshold = int64(20)                 // 7天内去重城市对
	disputeThreshold        = int64(5)                  // 30天内纠纷数
)

// DetectorInput 各规则的统计窗口聚合值
type DetectorInput struct {
	OffersLastHour   int64
	AvgOfferPrice24h decimal.Decimal
	OfferCount24h    int64
	DistinctRoutes7d int64
	DisputeCount30d  int64
}

// Finding 单条检测结论
type Finding struct {
	ActivityType string
	RiskLevel    string
	Details      string
}

// DetectSuspiciousActivity 规则彼此独立，结论可叠加，一次扫描产出 0~4 条
func DetectSuspiciousActivity(in DetectorInput) []Finding {
	findings := make([]Finding, 0, 4)

	// 规则1：报价刷量
	if in.OffersLastHour > rapidOfferThreshold {
		findings = append(findings, Finding{
			ActivityType: model.ActivityTypeRapidOffers,
			RiskLevel:    model.RiskLevelHigh,
			Details:      fmt.Sprintf("1小时内创建了 %d 条报价（阈值 %d）", in.OffersLastHour, rapidOfferThreshold),
		})
	}

	// 规则2：报价定价异常，均价过高升级为 critical
	if in.OfferCount24h > 0 {
		if in.AvgOfferPrice24h.GreaterThan(priceHighThreshold) {
			findings = append(findings, Finding{
				ActivityType: model.ActivityTypeUnusualPricing,
				RiskLevel:    model.RiskLevelCritical,
				Details:      fmt.Sprintf("24小时报价均价 %s 超过上界 %s", in.AvgOfferPrice24h.StringFixed(2), priceHighThreshold),
			})
		} else if in.AvgOfferPrice24h.LessThan(priceLowThreshold) {
			findings = append(findings, Finding{
				ActivityType: model.ActivityTypeUnusualPricing,
				RiskLevel:    model.RiskLevelMedium,
				Details:      fmt.Sprintf("24小时报价均价 %s 低于下界 %s", in.AvgOfferPrice24h.StringFixed(2), priceLowThreshold),
			})
		}
	}

	// 规则3：路线异常分散
	if in.DistinctRoutes7d > routeDiversityThreshold {
		findings = append(findings, Finding{
			ActivityType: model.ActivityTypeLocationAnomaly,
			RiskLevel:    model.RiskLevelMedium,
			Details:      fmt.Sprintf("7天内出现 %d 组不同取送城市对（阈值 %d）", in.DistinctRoutes7d, routeDiversityThreshold),
		})
	}

	// 规则4：纠纷频发
	if in.DisputeCount30d > disputeThreshold {
		findings = append(findings, Finding{
			ActivityType: model.ActivityTypeRepeatedDisputes,
			RiskLevel:    model.RiskLevelHigh,
			Details:      fmt.Sprintf("30天内卷入 %d 起纠纷（阈值 %d）", in.DisputeCount30d, disputeThreshold),
		})
	}

	return findings
}

// HighestRiskLevel 一批结论里的最高等级，空批返回 ""
func HighestRiskLevel(findings []Finding) string {
	highest := ""
	rank := 0
	for _, f := range findings {
		if r := model.RiskLevelRank(f.RiskLevel); r > rank {
			rank = r
			highest = f.RiskLevel
		}
	}
	return highest
}

// Detector 拉取市场侧统计窗口后执行纯规则
type Detector struct {
	marketRepo *repository.MarketplaceRepository
}

func NewDetector(db *gorm.DB) *Detector {
	return &Detector{
		marketRepo: repository.NewMarketplaceRepository(db),
	}
}

func (d *Detector) Run(ctx context.Context, userID int64) ([]Finding, error) {
	now := time.Now()

	offersLastHour, err := d.marketRepo.CountOffersSince(ctx, userID, now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("查询报价频率失败: %w", err)
	}

	avgPrice, offerCount, err := d.marketRepo.AvgOfferPriceSince(ctx, userID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("查询报价均价失败: %w", err)
	}

	routes, err := d.marketRepo.CountDistinctRoutesSince(ctx, userID, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("查询路线分布失败: %w", err)
	}

	disputes, err := d.marketRepo.CountDisputesSince(ctx, userID, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("查询纠纷记录失败: %w", err)
	}

	return DetectSuspiciousActivity(DetectorInput{
		OffersLastHour:   offersLastHour,
		AvgOfferPrice24h: avgPrice,
		OfferCount24h:    offerCount,
		DistinctRoutes7d: routes,
		DisputeCount30d:  disputes,
	}), nil
}
