// Package domain 支付服务的领域模型（储蓄卡片，网关交互不在范围内）
package domain

import (
	"context"
	"errors"
	"time"
)

// SavedCard 顾客保存的支付卡片，只存脱敏卡号
type SavedCard struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CustomerID   uint      `gorm:"column:customer_id;index;not null" json:"customer_id"`
	MaskedNumber string    `gorm:"column:masked_number;type:varchar(32);not null" json:"masked_number"`
	Brand        string    `gorm:"column:brand;type:varchar(20)" json:"brand"`
	HolderName   string    `gorm:"column:holder_name;type:varchar(100);not null" json:"holder_name"`
	ExpiryMonth  int       `gorm:"column:expiry_month;not null" json:"expiry_month"`
	ExpiryYear   int       `gorm:"column:expiry_year;not null" json:"expiry_year"`
	IsDefault    bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

// TableName 表名
func (SavedCard) TableName() string { return "saved_cards" }

// Expired 判断卡片在给定时间是否已过期
func (c *SavedCard) Expired(now time.Time) bool {
	if c.ExpiryYear < now.Year() {
		return true
	}
	return c.ExpiryYear == now.Year() && c.ExpiryMonth < int(now.Month())
}

// 领域错误
var (
	ErrNotFound      = errors.New("card not found")
	ErrInvalidExpiry = errors.New("invalid card expiry")
)

// CardRepository 卡片仓储接口
type CardRepository interface {
	Save(ctx context.Context, card *SavedCard) error
	Get(ctx context.Context, customerID, id uint) (*SavedCard, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]*SavedCard, error)
	Delete(ctx context.Context, customerID, id uint) error
	ClearDefault(ctx context.Context, customerID uint) error
	SetDefault(ctx context.Context, customerID, id uint) error
}
