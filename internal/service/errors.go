package service

import "errors"

// 业务错误，handler 层用 errors.Is 映射到 HTTP 状态码
var (
	ErrInvalidAmount       = errors.New("充值金额不合法")
	ErrRiskBlocked         = errors.New("风控拦截")
	ErrIntentNotFound      = errors.New("充值意向不存在")
	ErrIntentForbidden     = errors.New("无权操作该充值意向")
	ErrPaymentNotCompleted = errors.New("支付未完成")
	ErrScanCooldown        = errors.New("扫描过于频繁")
	ErrInvalidStatus       = errors.New("状态不合法")
	ErrActivityNotFound    = errors.New("可疑行为记录不存在")
	ErrBulkScanTooLarge    = errors.New("批量扫描用户数超限")
	ErrBulkScanEmpty       = errors.New("批量扫描用户列表为空")
	ErrBalanceNotEnough    = errors.New("可用余额不足")
)
