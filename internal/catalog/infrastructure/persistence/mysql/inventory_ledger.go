package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"gorm.io/gorm"
)

// inventoryLedgerImpl 基于 books 表 stock 字段的库存账本实现。
// 扣减通过单条条件 UPDATE 完成，检查与扣减在数据库内原子执行，
// 并发结算同一本书的最后一件库存时只有一个事务能成功。
type inventoryLedgerImpl struct {
	db *gorm.DB
}

// NewInventoryLedger 创建库存账本实例
func NewInventoryLedger(db *gorm.DB) domain.InventoryLedger {
	return &inventoryLedgerImpl{db: db}
}

// CheckAvailable 实现 domain.InventoryLedger.CheckAvailable
func (l *inventoryLedgerImpl) CheckAvailable(ctx context.Context, bookID uint, quantity int) (bool, error) {
	var book domain.Book
	err := l.db.WithContext(ctx).Select("id", "stock", "available").First(&book, bookID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		logger.Error(ctx, "inventory_ledger.check_available failed", "book_id", bookID, "error", err)
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return book.CanFulfill(quantity), nil
}

// Decrement 实现 domain.InventoryLedger.Decrement
func (l *inventoryLedgerImpl) Decrement(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	res := tx.WithContext(ctx).Model(&domain.Book{}).
		Where("id = ? AND available = ? AND stock >= ?", bookID, true, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		logger.Error(ctx, "inventory_ledger.decrement failed", "book_id", bookID, "error", res.Error)
		return fmt.Errorf("failed to decrement stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.InsufficientStockError{BookID: bookID}
	}
	return nil
}

// Restore 实现 domain.InventoryLedger.Restore
func (l *inventoryLedgerImpl) Restore(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	res := tx.WithContext(ctx).Model(&domain.Book{}).
		Where("id = ?", bookID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		logger.Error(ctx, "inventory_ledger.restore failed", "book_id", bookID, "error", res.Error)
		return fmt.Errorf("failed to restore stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
