package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 流水类型
const (
	TransactionTypeDeposit           = "DEPOSIT"            // 充值入账
	TransactionTypeCommissionCapture = "COMMISSION_CAPTURE" // 佣金冻结
	TransactionTypeCommissionRelease = "COMMISSION_RELEASE" // 佣金释放
	TransactionTypeRefund            = "REFUND"             // 退款
)

const (
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusPending   = "PENDING"
)

// 流水关联实体类型
const (
	ReferenceTypeTopupIntent = "topup_intent"
	ReferenceTypeOffer       = "offer"
	ReferenceTypeShipment    = "shipment"
)

// WalletTransaction 账户流水表
// 只追加，不修改，不删除；(reference_type, reference_id) 唯一，
// 重复确认时的重复插入直接忽略
type WalletTransaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	UserID        int64           `gorm:"index;not null" json:"user_id"`
	Type          string          `gorm:"type:varchar(32);index;not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"` // 正数入账，负数出账
	Status        string          `gorm:"type:varchar(20);not null" json:"status"`
	Description   string          `gorm:"type:varchar(256)" json:"description"`
	ReferenceType string          `gorm:"type:varchar(32);not null;uniqueIndex:uk_reference" json:"reference_type"`
	ReferenceID   string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_reference" json:"reference_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
