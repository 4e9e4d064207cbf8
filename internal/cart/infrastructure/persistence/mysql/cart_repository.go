// Package mysql 提供购物车仓储的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/bookstore/internal/cart/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepositoryImpl struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储实例
func NewCartRepository(db *gorm.DB) domain.CartRepository {
	return &cartRepositoryImpl{db: db}
}

// GetLine 实现 domain.CartRepository.GetLine
func (r *cartRepositoryImpl) GetLine(ctx context.Context, customerID, lineID uint) (*domain.CartLine, error) {
	var line domain.CartLine
	err := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", lineID, customerID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLineNotFound
		}
		logger.Error(ctx, "cart_repository.get_line failed", "line_id", lineID, "error", err)
		return nil, fmt.Errorf("failed to get cart line: %w", err)
	}
	return &line, nil
}

// GetLineByBook 实现 domain.CartRepository.GetLineByBook
func (r *cartRepositoryImpl) GetLineByBook(ctx context.Context, customerID, bookID uint) (*domain.CartLine, error) {
	var line domain.CartLine
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND book_id = ?", customerID, bookID).
		First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLineNotFound
		}
		logger.Error(ctx, "cart_repository.get_line_by_book failed", "book_id", bookID, "error", err)
		return nil, fmt.Errorf("failed to get cart line: %w", err)
	}
	return &line, nil
}

// ListLines 实现 domain.CartRepository.ListLines
func (r *cartRepositoryImpl) ListLines(ctx context.Context, customerID uint) ([]*domain.CartLine, error) {
	var lines []*domain.CartLine
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at asc").
		Find(&lines).Error
	if err != nil {
		logger.Error(ctx, "cart_repository.list_lines failed", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	return lines, nil
}

// Save 实现 domain.CartRepository.Save
// (customer_id, book_id) 冲突时累加数量，保证每对组合至多一行
func (r *cartRepositoryImpl) Save(ctx context.Context, line *domain.CartLine) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("quantity + VALUES(quantity)")}),
	}).Create(line).Error
	if err != nil {
		logger.Error(ctx, "cart_repository.save failed", "customer_id", line.CustomerID, "book_id", line.BookID, "error", err)
		return fmt.Errorf("failed to save cart line: %w", err)
	}
	return nil
}

// SetQuantity 实现 domain.CartRepository.SetQuantity
func (r *cartRepositoryImpl) SetQuantity(ctx context.Context, customerID, lineID uint, quantity int) error {
	res := r.db.WithContext(ctx).Model(&domain.CartLine{}).
		Where("id = ? AND customer_id = ?", lineID, customerID).
		Update("quantity", quantity)
	if res.Error != nil {
		logger.Error(ctx, "cart_repository.set_quantity failed", "line_id", lineID, "error", res.Error)
		return fmt.Errorf("failed to set quantity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

// Delete 实现 domain.CartRepository.Delete
func (r *cartRepositoryImpl) Delete(ctx context.Context, customerID, lineID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", lineID, customerID).
		Delete(&domain.CartLine{})
	if res.Error != nil {
		logger.Error(ctx, "cart_repository.delete failed", "line_id", lineID, "error", res.Error)
		return fmt.Errorf("failed to delete cart line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

// Clear 实现 domain.CartRepository.Clear
func (r *cartRepositoryImpl) Clear(ctx context.Context, customerID uint) error {
	return r.ClearTx(ctx, r.db, customerID)
}

// ClearTx 实现 domain.CartRepository.ClearTx
func (r *cartRepositoryImpl) ClearTx(ctx context.Context, tx *gorm.DB, customerID uint) error {
	err := tx.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&domain.CartLine{}).Error
	if err != nil {
		logger.Error(ctx, "cart_repository.clear failed", "customer_id", customerID, "error", err)
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
