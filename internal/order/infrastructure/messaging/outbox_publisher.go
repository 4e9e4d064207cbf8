// Package messaging 基于 Outbox 模式的订单事件发布与转发。
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	"gorm.io/gorm"
)

// Outbox 记录状态
const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// OutboxMessage Outbox 记录
// 与触发事件的业务写入在同一事务内落库，由 Relay 异步转发到 Kafka
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primary_key"`
	EventType string    `gorm:"type:varchar(64);index"`
	Key       string    `gorm:"type:varchar(64)"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(16);index;default:'pending'"`
	Attempts  int       `gorm:"default:0"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "order_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，使用 Outbox 模式
type OutboxEventPublisher struct{}

// NewOutboxEventPublisher 创建 OutboxEventPublisher 实例
func NewOutboxEventPublisher() *OutboxEventPublisher {
	return &OutboxEventPublisher{}
}

// PublishOrderCreated 发布订单创建事件
func (p *OutboxEventPublisher) PublishOrderCreated(ctx context.Context, tx *gorm.DB, event domain.OrderCreatedEvent) error {
	return p.publish(ctx, tx, domain.EventTypeOrderCreated, event.OrderNumber, event)
}

// PublishOrderStatusChanged 发布订单状态变更事件
func (p *OutboxEventPublisher) PublishOrderStatusChanged(ctx context.Context, tx *gorm.DB, event domain.OrderStatusChangedEvent) error {
	return p.publish(ctx, tx, domain.EventTypeOrderStatusChanged, event.OrderNumber, event)
}

// PublishOrderCancelled 发布订单取消事件
func (p *OutboxEventPublisher) PublishOrderCancelled(ctx context.Context, tx *gorm.DB, event domain.OrderCancelledEvent) error {
	return p.publish(ctx, tx, domain.EventTypeOrderCancelled, event.OrderNumber, event)
}

// publish 通用事件落库
func (p *OutboxEventPublisher) publish(ctx context.Context, tx *gorm.DB, eventType, key string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := OutboxMessage{
		ID:        uuid.New().String(),
		EventType: eventType,
		Key:       key,
		Payload:   string(payload),
		Status:    outboxStatusPending,
		CreatedAt: time.Now(),
	}
	return tx.WithContext(ctx).Create(&message).Error
}
