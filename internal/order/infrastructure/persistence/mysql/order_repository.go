// Package mysql 提供订单仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"gorm.io/gorm"
)

// MySQL 唯一键冲突错误码
const mysqlErrDuplicateEntry = 1062

type orderRepositoryImpl struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepositoryImpl{db: db}
}

// CreateTx 实现 domain.OrderRepository.CreateTx
func (r *orderRepositoryImpl) CreateTx(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	if err := tx.WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicateEntry(err) {
			return domain.ErrDuplicateOrderNumber
		}
		logger.Error(ctx, "order_repository.create failed", "order_number", order.OrderNumber, "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// SaveTx 实现 domain.OrderRepository.SaveTx
// 仅更新可变字段，订单头部其余字段创建后冻结
func (r *orderRepositoryImpl) SaveTx(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	err := tx.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":          string(order.Status),
			"payment_status":  string(order.PaymentStatus),
			"tracking_number": order.TrackingNumber,
			"shipped_at":      order.ShippedAt,
			"delivered_at":    order.DeliveredAt,
		}).Error
	if err != nil {
		logger.Error(ctx, "order_repository.save failed", "order_id", order.ID, "error", err)
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// Get 实现 domain.OrderRepository.Get
func (r *orderRepositoryImpl) Get(ctx context.Context, orderID uint) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Preload("Lines").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		logger.Error(ctx, "order_repository.get failed", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// ListByCustomer 实现 domain.OrderRepository.ListByCustomer
func (r *orderRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, status domain.OrderStatus, limit, offset int) ([]*domain.Order, int64, error) {
	var orders []*domain.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&domain.Order{}).Where("customer_id = ?", customerID)
	if status != "" {
		db = db.Where("status = ?", string(status))
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Lines").Order("created_at desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		logger.Error(ctx, "order_repository.list_by_customer failed", "customer_id", customerID, "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// ListBySeller 实现 domain.OrderRepository.ListBySeller
func (r *orderRepositoryImpl) ListBySeller(ctx context.Context, sellerID uint, limit, offset int) ([]*domain.Order, int64, error) {
	var orders []*domain.Order
	var total int64

	sub := r.db.WithContext(ctx).Model(&domain.OrderLine{}).
		Select("DISTINCT order_id").
		Where("seller_id = ?", sellerID)

	db := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id IN (?)", sub)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Lines").Order("created_at desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		logger.Error(ctx, "order_repository.list_by_seller failed", "seller_id", sellerID, "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// ListAll 实现 domain.OrderRepository.ListAll
func (r *orderRepositoryImpl) ListAll(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, int64, error) {
	var orders []*domain.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&domain.Order{})
	if status != "" {
		db = db.Where("status = ?", string(status))
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Lines").Order("created_at desc").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		logger.Error(ctx, "order_repository.list_all failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// ListDeliveredBetween 实现 domain.OrderRepository.ListDeliveredBetween
func (r *orderRepositoryImpl) ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status = ? AND delivered_at >= ? AND delivered_at < ?", string(domain.OrderStatusDelivered), from, to).
		Find(&orders).Error
	if err != nil {
		logger.Error(ctx, "order_repository.list_delivered_between failed", "error", err)
		return nil, fmt.Errorf("failed to list delivered orders: %w", err)
	}
	return orders, nil
}

// isDuplicateEntry 判断是否为 MySQL 唯一键冲突。
// 按驱动错误码匹配而非错误文本，文本随 MySQL 版本和 locale 变化
func isDuplicateEntry(err error) bool {
	var mysqlErr *gomysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}
