// Package consumer 订阅订单事件并转化为站内通知
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wyfcoding/bookstore/internal/notification/application"
	"github.com/wyfcoding/bookstore/internal/notification/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/mq"
)

// 订单事件主题上的事件类型，与订单服务的 Outbox 约定一致
const (
	eventOrderCreated       = "order.created"
	eventOrderStatusChanged = "order.status_changed"
	eventOrderCancelled     = "order.cancelled"
)

// envelope 订单 Outbox 中继写入 Kafka 的外层结构
type envelope struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

type orderCreatedPayload struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  uint   `json:"customer_id"`
	TotalAmount string `json:"total_amount"`
	LineCount   int    `json:"line_count"`
	SellerIDs   []uint `json:"seller_ids"`
}

type orderStatusChangedPayload struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  uint   `json:"customer_id"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
}

type orderCancelledPayload struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  uint   `json:"customer_id"`
	Reason      string `json:"reason"`
}

// OrderEventsConsumer 订单事件消费循环
type OrderEventsConsumer struct {
	consumer      *mq.KafkaConsumer
	notifications *application.NotificationService
}

// NewOrderEventsConsumer 构造函数
func NewOrderEventsConsumer(consumer *mq.KafkaConsumer, notifications *application.NotificationService) *OrderEventsConsumer {
	return &OrderEventsConsumer{consumer: consumer, notifications: notifications}
}

// Run 持续消费直到 ctx 取消。单条消息处理失败只记日志，不中断循环
func (c *OrderEventsConsumer) Run(ctx context.Context) error {
	logger.Info(ctx, "order events consumer started")
	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info(ctx, "order events consumer stopped")
				return nil
			}
			logger.Error(ctx, "failed to read order event", "error", err)
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			logger.Error(ctx, "failed to handle order event", "key", msg.Key, "error", err)
		}
	}
}

func (c *OrderEventsConsumer) handle(ctx context.Context, msg *mq.Message) error {
	var env envelope
	if err := msg.UnmarshalPayload(&env); err != nil {
		return fmt.Errorf("failed to decode event envelope: %w", err)
	}

	switch env.EventType {
	case eventOrderCreated:
		return c.handleCreated(ctx, env.Payload)
	case eventOrderStatusChanged:
		return c.handleStatusChanged(ctx, env.Payload)
	case eventOrderCancelled:
		return c.handleCancelled(ctx, env.Payload)
	default:
		logger.Warn(ctx, "unknown order event type", "event_type", env.EventType)
		return nil
	}
}

func (c *OrderEventsConsumer) handleCreated(ctx context.Context, payload json.RawMessage) error {
	var event orderCreatedPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode order.created: %w", err)
	}

	err := c.notifications.Notify(ctx, application.NotifyCommand{
		RecipientID: event.CustomerID,
		Title:       fmt.Sprintf("Order %s placed", event.OrderNumber),
		Message:     fmt.Sprintf("Your order of %d item(s) totalling %s has been received.", event.LineCount, event.TotalAmount),
		Category:    domain.CategoryOrder,
		Priority:    domain.PriorityNormal,
		Link:        fmt.Sprintf("/orders/%d", event.OrderID),
	})
	if err != nil {
		return err
	}

	for _, sellerID := range event.SellerIDs {
		err := c.notifications.Notify(ctx, application.NotifyCommand{
			RecipientID: sellerID,
			Title:       fmt.Sprintf("New order %s", event.OrderNumber),
			Message:     "One of your books was just ordered.",
			Category:    domain.CategoryOrder,
			Priority:    domain.PriorityNormal,
			Link:        fmt.Sprintf("/orders/%d", event.OrderID),
		})
		if err != nil {
			logger.Error(ctx, "seller notification failed", "seller_id", sellerID, "error", err)
		}
	}
	return nil
}

func (c *OrderEventsConsumer) handleStatusChanged(ctx context.Context, payload json.RawMessage) error {
	var event orderStatusChangedPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode order.status_changed: %w", err)
	}

	return c.notifications.Notify(ctx, application.NotifyCommand{
		RecipientID: event.CustomerID,
		Title:       fmt.Sprintf("Order %s is now %s", event.OrderNumber, event.ToStatus),
		Message:     fmt.Sprintf("Your order moved from %s to %s.", event.FromStatus, event.ToStatus),
		Category:    domain.CategoryOrder,
		Priority:    domain.PriorityNormal,
		Link:        fmt.Sprintf("/orders/%d", event.OrderID),
	})
}

func (c *OrderEventsConsumer) handleCancelled(ctx context.Context, payload json.RawMessage) error {
	var event orderCancelledPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode order.cancelled: %w", err)
	}

	message := "Your order has been cancelled and the payment refunded."
	if event.Reason != "" {
		message = fmt.Sprintf("Your order has been cancelled (%s) and the payment refunded.", event.Reason)
	}

	return c.notifications.Notify(ctx, application.NotifyCommand{
		RecipientID: event.CustomerID,
		Title:       fmt.Sprintf("Order %s cancelled", event.OrderNumber),
		Message:     message,
		Category:    domain.CategoryOrder,
		Priority:    domain.PriorityHigh,
		Link:        fmt.Sprintf("/orders/%d", event.OrderID),
	})
}
