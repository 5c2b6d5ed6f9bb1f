package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet 用户钱包表
// 每个用户一行，余额只能通过 Ledger 操作变更，不允许删除
type Wallet struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64           `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`          // 可用余额
	ReservedBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"reserved_balance"` // 冻结金额（待结算佣金等）
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}

// Round2 金额统一按 2 位小数四舍五入（round-half-up）后对外输出
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Available 可支配余额 = 余额 - 冻结金额
func (w *Wallet) Available() decimal.Decimal {
	return Round2(w.Balance.Sub(w.ReservedBalance))
}
