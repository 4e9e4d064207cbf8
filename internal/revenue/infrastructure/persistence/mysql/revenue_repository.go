// Package mysql 营收仓储的 MySQL 实现
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/bookstore/internal/revenue/domain"
	"gorm.io/gorm"
)

const dayFormat = "2006-01-02"

type revenueRepositoryImpl struct {
	db *gorm.DB
}

// NewRevenueRepository 创建营收仓储实例
func NewRevenueRepository(db *gorm.DB) domain.RevenueRepository {
	return &revenueRepositoryImpl{db: db}
}

func (r *revenueRepositoryImpl) ReplaceDay(ctx context.Context, day time.Time, rows []*domain.DailyRevenue) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("day = ?", day.Format(dayFormat)).Delete(&domain.DailyRevenue{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace revenue day: %w", err)
	}
	return nil
}

func (r *revenueRepositoryImpl) ListBySeller(ctx context.Context, sellerID uint, from, to time.Time) ([]*domain.DailyRevenue, error) {
	var rows []*domain.DailyRevenue
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND day >= ? AND day <= ?", sellerID, from.Format(dayFormat), to.Format(dayFormat)).
		Order("day ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seller revenue: %w", err)
	}
	return rows, nil
}

func (r *revenueRepositoryImpl) ListByDay(ctx context.Context, day time.Time) ([]*domain.DailyRevenue, error) {
	var rows []*domain.DailyRevenue
	err := r.db.WithContext(ctx).
		Where("day = ?", day.Format(dayFormat)).
		Order("gross_amount DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list revenue by day: %w", err)
	}
	return rows, nil
}
