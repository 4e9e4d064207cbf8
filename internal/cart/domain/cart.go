// Package domain 购物车服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// CartLine 购物车行
// 每个 (customer, book) 至多一行；重复加购在原行上累加数量。
// 行删除必须是物理删除：软删除的墓碑行会占住 (customer_id, book_id)
// 唯一键，使后续加购的 upsert 命中一条列表查询永远看不到的行
type CartLine struct {
	ID uint `gorm:"primarykey" json:"id"`
	// 所属顾客
	CustomerID uint `gorm:"column:customer_id;not null;uniqueIndex:idx_customer_book" json:"customer_id"`
	// 图书
	BookID uint `gorm:"column:book_id;not null;uniqueIndex:idx_customer_book" json:"book_id"`
	// 数量，始终 >= 1
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// TableName 指定表名
func (CartLine) TableName() string { return "cart_lines" }

// 领域错误
var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// CartRepository 购物车仓储接口
// 所有操作都以 customerID 为作用域，跨顾客访问返回 ErrLineNotFound
type CartRepository interface {
	// GetLine 按行 ID 获取指定顾客的购物车行
	GetLine(ctx context.Context, customerID, lineID uint) (*CartLine, error)
	// GetLineByBook 获取顾客针对某本书的购物车行
	GetLineByBook(ctx context.Context, customerID, bookID uint) (*CartLine, error)
	// ListLines 列出顾客全部购物车行
	ListLines(ctx context.Context, customerID uint) ([]*CartLine, error)
	// Save 插入购物车行；(customer, book) 冲突时在原行累加数量
	Save(ctx context.Context, line *CartLine) error
	// SetQuantity 将指定行数量改写为给定值
	SetQuantity(ctx context.Context, customerID, lineID uint, quantity int) error
	// Delete 删除指定顾客的购物车行
	Delete(ctx context.Context, customerID, lineID uint) error
	// Clear 清空顾客购物车
	Clear(ctx context.Context, customerID uint) error
	// ClearTx 在给定事务内清空顾客购物车，供结算流程使用
	ClearTx(ctx context.Context, tx *gorm.DB, customerID uint) error
}
