// Package mysql 卡片仓储的 MySQL 实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/bookstore/internal/payment/domain"
	"gorm.io/gorm"
)

type cardRepositoryImpl struct {
	db *gorm.DB
}

// NewCardRepository 创建卡片仓储实例
func NewCardRepository(db *gorm.DB) domain.CardRepository {
	return &cardRepositoryImpl{db: db}
}

func (r *cardRepositoryImpl) Save(ctx context.Context, card *domain.SavedCard) error {
	if err := r.db.WithContext(ctx).Save(card).Error; err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	return nil
}

func (r *cardRepositoryImpl) Get(ctx context.Context, customerID, id uint) (*domain.SavedCard, error) {
	var card domain.SavedCard
	err := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", id, customerID).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (r *cardRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint) ([]*domain.SavedCard, error) {
	var cards []*domain.SavedCard
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("is_default DESC, created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

func (r *cardRepositoryImpl) Delete(ctx context.Context, customerID, id uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", id, customerID).
		Delete(&domain.SavedCard{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *cardRepositoryImpl) ClearDefault(ctx context.Context, customerID uint) error {
	err := r.db.WithContext(ctx).Model(&domain.SavedCard{}).
		Where("customer_id = ? AND is_default = ?", customerID, true).
		Update("is_default", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear default card: %w", err)
	}
	return nil
}

func (r *cardRepositoryImpl) SetDefault(ctx context.Context, customerID, id uint) error {
	result := r.db.WithContext(ctx).Model(&domain.SavedCard{}).
		Where("id = ? AND customer_id = ?", id, customerID).
		Update("is_default", true)
	if result.Error != nil {
		return fmt.Errorf("failed to set default card: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
