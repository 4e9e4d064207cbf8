// Package domain 图书目录服务的领域模型
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Book 图书实体
type Book struct {
	gorm.Model
	// 书名
	Title string `gorm:"column:title;type:varchar(255);index;not null" json:"title"`
	// 作者
	Author string `gorm:"column:author;type:varchar(128);index" json:"author"`
	// ISBN，唯一
	ISBN string `gorm:"column:isbn;type:varchar(20);uniqueIndex;not null" json:"isbn"`
	// 描述
	Description string `gorm:"column:description;type:text" json:"description"`
	// 售价
	Price decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	// 库存数量，永不为负；仅由已提交订单扣减、由取消恢复
	Stock int `gorm:"column:stock;not null;default:0" json:"stock"`
	// 是否上架
	Available bool `gorm:"column:available;not null;default:true" json:"available"`
	// 所属卖家
	SellerID uint `gorm:"column:seller_id;index;not null" json:"seller_id"`
	// 分类
	Category string `gorm:"column:category;type:varchar(64);index" json:"category"`
}

// TableName 指定表名
func (Book) TableName() string { return "books" }

// CanFulfill 判断当前库存是否可满足给定数量
func (b *Book) CanFulfill(quantity int) bool {
	return b.Available && b.Stock >= quantity
}

// 领域错误
var (
	ErrNotFound      = errors.New("book not found")
	ErrDuplicateISBN = errors.New("isbn already exists")
	ErrForbidden     = errors.New("not the owner of this book")
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrInvalidStock  = errors.New("stock must be non-negative")
)

// InsufficientStockError 库存不足错误，携带具体书目
type InsufficientStockError struct {
	BookID uint
	Title  string
}

func (e *InsufficientStockError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("insufficient stock for book %q (id=%d)", e.Title, e.BookID)
	}
	return fmt.Sprintf("insufficient stock for book id=%d", e.BookID)
}

// UnavailableError 图书不可购（下架或不存在）
type UnavailableError struct {
	BookID uint
	Title  string
}

func (e *UnavailableError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("book %q (id=%d) is unavailable", e.Title, e.BookID)
	}
	return fmt.Sprintf("book id=%d is unavailable", e.BookID)
}

// BookRepository 图书仓储接口
type BookRepository interface {
	Save(ctx context.Context, book *Book) error
	Get(ctx context.Context, id uint) (*Book, error)
	GetMany(ctx context.Context, ids []uint) ([]*Book, error)
	Update(ctx context.Context, book *Book) error
	List(ctx context.Context, query BookQuery) ([]*Book, int64, error)
}

// BookQuery 图书列表查询条件
type BookQuery struct {
	Keyword       string
	Category      string
	SellerID      uint
	OnlyAvailable bool
	Limit         int
	Offset        int
}

// InventoryLedger 库存账本接口
// 负责跟踪每本书的可用库存并在并发扣减下保证非负不变量
type InventoryLedger interface {
	// CheckAvailable 当且仅当图书存在、已上架且库存充足时返回 true
	CheckAvailable(ctx context.Context, bookID uint, quantity int) (bool, error)
	// Decrement 原子扣减库存；库存不足时返回 *InsufficientStockError。
	// 只能在订单工作流的提交步骤中、给定事务内调用。
	Decrement(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) error
	// Restore 原子加回库存；仅用于订单取消
	Restore(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) error
}
