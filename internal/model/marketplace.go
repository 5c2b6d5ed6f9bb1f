package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 市场侧数据表。本服务只读（检测规则的统计窗口），写入方是市场主服务。

// User 用户表（钱包/风控关心的最小字段集）
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Role      string    `gorm:"type:varchar(20);index;not null" json:"role"` // shipper / carrier / admin
	Name      string    `gorm:"type:varchar(128)" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

const RoleAdmin = "admin"

// Offer 承运报价
type Offer struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64           `gorm:"index;not null" json:"user_id"`
	ShipmentID int64           `gorm:"index;not null" json:"shipment_id"`
	Price      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	Status     string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Offer) TableName() string {
	return "offer"
}

// Shipment 货运单（检测只用取送城市对）
type Shipment struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	PickupCity   string    `gorm:"type:varchar(64);not null" json:"pickup_city"`
	DeliveryCity string    `gorm:"type:varchar(64);not null" json:"delivery_city"`
	Status       string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Shipment) TableName() string {
	return "shipment"
}

// Dispute 纠纷记录，任一方是当事人都计入检测窗口
type Dispute struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipmentID    int64     `gorm:"index;not null" json:"shipment_id"`
	ComplainantID int64     `gorm:"index;not null" json:"complainant_id"`
	RespondentID  int64     `gorm:"index;not null" json:"respondent_id"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Dispute) TableName() string {
	return "dispute"
}

const (
	FlagStatusOpen   = "open"
	FlagStatusClosed = "closed"
)

// AdminFlag 升级标记：critical 级检测结果自动生成，进入人工复核队列
type AdminFlag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FlagNo    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"flag_no"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	FlagType  string    `gorm:"type:varchar(32);not null" json:"flag_type"`
	Reason    string    `gorm:"type:varchar(512);not null" json:"reason"`
	Status    string    `gorm:"type:varchar(20);index;not null;default:open" json:"status"`
	CreatedBy int64     `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AdminFlag) TableName() string {
	return "admin_flag"
}
