// Package domain 营收服务的领域模型
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DailyRevenue 按卖家按天的去范式化营收行，由已送达订单重算得出
type DailyRevenue struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	SellerID    uint            `gorm:"column:seller_id;uniqueIndex:idx_seller_day;not null" json:"seller_id"`
	Day         time.Time       `gorm:"column:day;type:date;uniqueIndex:idx_seller_day;not null" json:"day"`
	OrderCount  int             `gorm:"column:order_count;not null" json:"order_count"`
	UnitsSold   int             `gorm:"column:units_sold;not null" json:"units_sold"`
	GrossAmount decimal.Decimal `gorm:"column:gross_amount;type:decimal(14,2);not null" json:"gross_amount"`
	ComputedAt  time.Time       `gorm:"column:computed_at;not null" json:"computed_at"`
}

// TableName 表名
func (DailyRevenue) TableName() string { return "daily_revenues" }

// RevenueRepository 营收仓储接口
type RevenueRepository interface {
	// ReplaceDay 原子替换某一天的全部营收行
	ReplaceDay(ctx context.Context, day time.Time, rows []*DailyRevenue) error
	ListBySeller(ctx context.Context, sellerID uint, from, to time.Time) ([]*DailyRevenue, error)
	ListByDay(ctx context.Context, day time.Time) ([]*DailyRevenue, error)
}
