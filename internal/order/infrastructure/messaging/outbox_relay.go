package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/mq"
	"gorm.io/gorm"
)

const (
	relayBatchSize = 100
	// 单条消息的投递尝试上限，超过后标记 failed 不再重试
	maxRelayAttempts = 5
)

// Envelope Kafka 上的事件信封，载荷为原始事件 JSON
type Envelope struct {
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// OutboxRelay 轮询待发 Outbox 记录并转发到 Kafka。
// 投递失败记录 failed 状态并继续，绝不影响触发事件的业务事务。
type OutboxRelay struct {
	db       *gorm.DB
	producer *mq.KafkaProducer
	topic    string
	interval time.Duration
}

// NewOutboxRelay 创建 OutboxRelay 实例
func NewOutboxRelay(db *gorm.DB, producer *mq.KafkaProducer, topic string, interval time.Duration) *OutboxRelay {
	return &OutboxRelay{
		db:       db,
		producer: producer,
		topic:    topic,
		interval: interval,
	}
}

// Start 启动转发循环，直到 ctx 取消
func (r *OutboxRelay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Info(ctx, "outbox relay started", "topic", r.topic, "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "outbox relay stopped")
			return
		case <-ticker.C:
			r.relayPending(ctx)
		}
	}
}

// relayPending 转发一批待发消息
func (r *OutboxRelay) relayPending(ctx context.Context) {
	var messages []OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at asc").
		Limit(relayBatchSize).
		Find(&messages).Error
	if err != nil {
		logger.Error(ctx, "outbox relay query failed", "error", err)
		return
	}

	for _, msg := range messages {
		envelope := Envelope{
			EventType: msg.EventType,
			Payload:   json.RawMessage(msg.Payload),
		}

		sendErr := r.producer.SendMessage(ctx, r.topic, msg.Key, envelope)
		status := nextRelayStatus(sendErr, msg.Attempts+1)
		if sendErr != nil {
			logger.Error(ctx, "outbox relay send failed",
				"message_id", msg.ID,
				"attempts", msg.Attempts+1,
				"status", status,
				"error", sendErr,
			)
		}

		err := r.db.WithContext(ctx).Model(&OutboxMessage{}).
			Where("id = ?", msg.ID).
			Updates(map[string]interface{}{
				"status":   status,
				"attempts": gorm.Expr("attempts + 1"),
			}).Error
		if err != nil {
			logger.Error(ctx, "outbox relay status update failed", "message_id", msg.ID, "error", err)
		}
	}
}

// nextRelayStatus 决定一次投递尝试后消息的去向：
// 成功即 sent；暂时失败保持 pending 等待下一轮，
// 尝试次数耗尽才落 failed，避免一次瞬时故障永久丢事件
func nextRelayStatus(sendErr error, attempts int) string {
	if sendErr == nil {
		return outboxStatusSent
	}
	if attempts >= maxRelayAttempts {
		return outboxStatusFailed
	}
	return outboxStatusPending
}
