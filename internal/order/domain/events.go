package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// 订单事件类型，作为 Kafka 消息键前缀与通知分类
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
	EventTypeOrderCancelled     = "order.cancelled"
)

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uint      `json:"customer_id"`
	TotalAmount string    `json:"total_amount"`
	LineCount   int       `json:"line_count"`
	SellerIDs   []uint    `json:"seller_ids"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// OrderStatusChangedEvent 订单状态变更事件
type OrderStatusChangedEvent struct {
	OrderID     uint        `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  uint        `json:"customer_id"`
	FromStatus  OrderStatus `json:"from_status"`
	ToStatus    OrderStatus `json:"to_status"`
	OccurredOn  time.Time   `json:"occurred_on"`
}

// OrderCancelledEvent 订单取消事件
type OrderCancelledEvent struct {
	OrderID     uint      `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uint      `json:"customer_id"`
	Reason      string    `json:"reason"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// EventPublisher 订单事件发布接口
// 实现方在给定事务内落 Outbox 记录，与业务写入同生共死；
// 下游投递失败绝不回滚触发它的订单变更
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, tx *gorm.DB, event OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, tx *gorm.DB, event OrderStatusChangedEvent) error
	PublishOrderCancelled(ctx context.Context, tx *gorm.DB, event OrderCancelledEvent) error
}
