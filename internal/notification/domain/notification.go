// Package domain 通知服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"
)

// Category 通知类别
type Category string

const (
	CategoryOrder  Category = "ORDER"
	CategorySystem Category = "SYSTEM"
)

// Priority 通知优先级
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Notification 站内通知实体
type Notification struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	RecipientID uint      `gorm:"column:recipient_id;index;not null" json:"recipient_id"`
	Title       string    `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Message     string    `gorm:"column:message;type:text" json:"message"`
	Category    Category  `gorm:"column:category;type:varchar(20);index;not null" json:"category"`
	Priority    Priority  `gorm:"column:priority;type:varchar(20);not null;default:'NORMAL'" json:"priority"`
	Read        bool      `gorm:"column:read;not null;default:false" json:"read"`
	Link        string    `gorm:"column:link;type:varchar(255)" json:"link"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName 表名
func (Notification) TableName() string { return "notifications" }

// 领域错误
var ErrNotFound = errors.New("notification not found")

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID uint, unreadOnly bool, page, pageSize int) ([]*Notification, int64, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, recipientID, id uint) error
	MarkAllRead(ctx context.Context, recipientID uint) error
	Delete(ctx context.Context, recipientID, id uint) error
}

// Sender 外部通道发送器（邮件、webhook 等），尽力而为
type Sender interface {
	Send(ctx context.Context, target, subject, content string) error
}
