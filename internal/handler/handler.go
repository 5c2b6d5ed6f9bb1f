package handler

import (
	"errors"
	"strconv"

	"kargopay/internal/config"
	"kargopay/internal/gateway"
	"kargopay/internal/repository"
	"kargopay/internal/service"
	"kargopay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	walletService *service.WalletService
	topupService  *service.TopupService
	scanService   *service.ScanService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, gw gateway.PaymentGateway) *Handler {
	return &Handler{
		walletService: service.NewWalletService(db, rdb, cfg),
		topupService:  service.NewTopupService(db, rdb, cfg, gw),
		scanService:   service.NewScanService(db, cfg),
	}
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetBalance 查询余额
// GET /api/v1/wallet/balance
func (h *Handler) GetBalance(c *gin.Context) {
	result, err := h.walletService.GetBalance(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		response.ServerError(c, "查询余额失败")
		return
	}
	response.Success(c, result)
}

// GetCarrierSummary 承运端账面总览
// GET /api/v1/wallet/nakliyeci
func (h *Handler) GetCarrierSummary(c *gin.Context) {
	result, err := h.walletService.GetCarrierSummary(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		response.ServerError(c, "查询账面失败")
		return
	}
	response.Success(c, result)
}

// CreateTopupIntentRequest 充值意向请求
type CreateTopupIntentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// CreateTopupIntent 创建充值意向
// POST /api/v1/wallet/topup/intent
//
// 风控同步前置：block 直接 403 且无任何副作用
func (h *Handler) CreateTopupIntent(c *gin.Context) {
	var req CreateTopupIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	meta := service.RequestMeta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.topupService.CreateIntent(c.Request.Context(), CurrentUserID(c), decimal.NewFromFloat(req.Amount), meta)
	if err != nil {
		var blocked *service.RiskBlockedError
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			response.ParamError(c, "充值金额不合法")
		case errors.As(err, &blocked):
			response.Forbidden(c, "充值被风控拦截", blocked.Reason)
		default:
			response.ServerError(c, "创建充值意向失败")
		}
		return
	}

	response.Success(c, result)
}

// ConfirmTopupRequest 充值确认请求
type ConfirmTopupRequest struct {
	ProviderIntentID string `json:"provider_intent_id" binding:"required"`
}

// ConfirmTopup 确认充值（幂等，可重放）
// POST /api/v1/wallet/topup/confirm
func (h *Handler) ConfirmTopup(c *gin.Context) {
	var req ConfirmTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.topupService.ConfirmIntent(c.Request.Context(), CurrentUserID(c), req.ProviderIntentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIntentNotFound):
			response.NotFound(c, "充值意向不存在")
		case errors.Is(err, service.ErrIntentForbidden):
			response.Forbidden(c, "无权操作该充值意向", "ownership_mismatch")
		case errors.Is(err, service.ErrPaymentNotCompleted):
			response.PaymentRequired(c, "支付未完成")
		default:
			response.ServerError(c, "确认充值失败")
		}
		return
	}

	response.Success(c, result)
}

// CommissionRequest 佣金冻结/释放请求（管理员操作）
type CommissionRequest struct {
	UserID  int64   `json:"user_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	OfferID string  `json:"offer_id" binding:"required"`
}

// CaptureCommission 佣金冻结
// POST /api/v1/wallet/commission/capture
func (h *Handler) CaptureCommission(c *gin.Context) {
	var req CommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	err := h.walletService.CaptureCommission(c.Request.Context(), req.UserID, decimal.NewFromFloat(req.Amount), req.OfferID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			response.ParamError(c, "金额不合法")
		case errors.Is(err, service.ErrBalanceNotEnough):
			response.ParamError(c, "可用余额不足")
		default:
			response.ServerError(c, "佣金冻结失败")
		}
		return
	}

	response.Success(c, gin.H{"message": "佣金已冻结"})
}

// ReleaseCommission 佣金释放
// POST /api/v1/wallet/commission/release
func (h *Handler) ReleaseCommission(c *gin.Context) {
	var req CommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	err := h.walletService.ReleaseCommission(c.Request.Context(), req.UserID, decimal.NewFromFloat(req.Amount), req.OfferID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			response.ParamError(c, "金额不合法")
			return
		}
		response.ServerError(c, "佣金释放失败")
		return
	}

	response.Success(c, gin.H{"message": "佣金已释放"})
}

// ============================================================
// 可疑行为相关接口（管理员）
// ============================================================

// ScanRequest 单用户扫描请求
type ScanRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ForceScan bool  `json:"force_scan"`
}

// ScanUser 扫描单个用户
// POST /api/v1/suspicious-activity/scan
func (h *Handler) ScanUser(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.scanService.ScanUser(c.Request.Context(), req.UserID, req.ForceScan, CurrentUserID(c))
	if err != nil {
		var cooldownErr *service.CooldownError
		if errors.As(err, &cooldownErr) {
			response.TooManyRequests(c, cooldownErr.Error())
			return
		}
		response.ServerError(c, "扫描失败")
		return
	}

	response.Success(c, result)
}

// BulkScanRequest 批量扫描请求
type BulkScanRequest struct {
	UserIDs      []int64 `json:"user_ids" binding:"required"`
	ScanCriteria string  `json:"scan_criteria"`
}

// BulkScan 批量扫描（不做冷却检查，只留 medium 及以上结论）
// POST /api/v1/suspicious-activity/bulk-scan
func (h *Handler) BulkScan(c *gin.Context) {
	var req BulkScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	entries, err := h.scanService.BulkScan(c.Request.Context(), req.UserIDs, CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBulkScanEmpty):
			response.ParamError(c, "用户列表不能为空")
		case errors.Is(err, service.ErrBulkScanTooLarge):
			response.ParamError(c, "单次批量扫描最多 100 个用户")
		default:
			response.ServerError(c, "批量扫描失败")
		}
		return
	}

	response.Success(c, gin.H{
		"results":       entries,
		"scan_criteria": req.ScanCriteria,
	})
}

// ListActivities 可疑行为列表
// GET /api/v1/suspicious-activity?risk_level=&activity_type=&status=&user_id=&page=&limit=
func (h *Handler) ListActivities(c *gin.Context) {
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := repository.ActivityFilter{
		RiskLevel:    c.Query("risk_level"),
		ActivityType: c.Query("activity_type"),
		Status:       c.Query("status"),
		UserID:       userID,
	}

	activities, total, err := h.scanService.ListActivities(c.Request.Context(), filter, page, limit)
	if err != nil {
		response.ServerError(c, "查询列表失败")
		return
	}

	response.Success(c, gin.H{
		"list":  activities,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// UpdateActivityStatusRequest 状态流转请求
type UpdateActivityStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ResolutionNotes string `json:"resolution_notes"`
}

// UpdateActivityStatus 流转可疑行为状态
// PUT /api/v1/suspicious-activity/:id/status
func (h *Handler) UpdateActivityStatus(c *gin.Context) {
	activityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	var req UpdateActivityStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	activity, err := h.scanService.UpdateStatus(c.Request.Context(), activityID, req.Status, req.ResolutionNotes, CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			response.ParamError(c, "状态不合法")
		case errors.Is(err, service.ErrActivityNotFound):
			response.NotFound(c, "可疑行为记录不存在")
		default:
			response.ServerError(c, "状态更新失败")
		}
		return
	}

	response.Success(c, activity)
}

// GetStatsOverview 可疑行为统计总览
// GET /api/v1/suspicious-activity/stats/overview
func (h *Handler) GetStatsOverview(c *gin.Context) {
	stats, err := h.scanService.GetStatsOverview(c.Request.Context())
	if err != nil {
		response.ServerError(c, "查询统计失败")
		return
	}
	response.Success(c, stats)
}
