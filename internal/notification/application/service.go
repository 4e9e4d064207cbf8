// Package application 通知服务的应用层
package application

import (
	"context"

	"github.com/wyfcoding/bookstore/internal/notification/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/metrics"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

// NotifyCommand 创建通知命令
type NotifyCommand struct {
	RecipientID uint
	Title       string
	Message     string
	Category    domain.Category
	Priority    domain.Priority
	Link        string
}

// NotificationService 通知服务：落库为站内通知，再尽力而为地向外部通道分发
type NotificationService struct {
	repo    domain.NotificationRepository
	users   userdomain.UserRepository
	senders []domain.Sender
	metrics *metrics.Metrics
}

// NewNotificationService 构造函数
func NewNotificationService(repo domain.NotificationRepository, users userdomain.UserRepository, senders []domain.Sender, m *metrics.Metrics) *NotificationService {
	return &NotificationService{repo: repo, users: users, senders: senders, metrics: m}
}

// Notify 创建通知。站内通知落库失败直接返回错误；
// 外部通道发送失败只记日志，绝不向调用方（事件消费循环）传播
func (s *NotificationService) Notify(ctx context.Context, cmd NotifyCommand) error {
	priority := cmd.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	n := &domain.Notification{
		RecipientID: cmd.RecipientID,
		Title:       cmd.Title,
		Message:     cmd.Message,
		Category:    cmd.Category,
		Priority:    priority,
		Link:        cmd.Link,
	}
	if err := s.repo.Save(ctx, n); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.NotificationsTotal.Inc()
	}

	target := s.resolveTarget(ctx, cmd.RecipientID)
	for _, sender := range s.senders {
		if err := sender.Send(ctx, target, cmd.Title, cmd.Message); err != nil {
			logger.Warn(ctx, "notification channel send failed",
				"recipient_id", cmd.RecipientID,
				"title", cmd.Title,
				"error", err,
			)
		}
	}
	return nil
}

// resolveTarget 查收件人邮箱作为外部通道目标；查不到时退化为空目标
func (s *NotificationService) resolveTarget(ctx context.Context, recipientID uint) string {
	user, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		logger.Warn(ctx, "notification recipient lookup failed", "recipient_id", recipientID, "error", err)
		return ""
	}
	return user.Email
}

// List 查询自己的通知
func (s *NotificationService) List(ctx context.Context, actor userdomain.Actor, unreadOnly bool, page, pageSize int) ([]*domain.Notification, int64, error) {
	page, pageSize = utils.NormalizePagination(page, pageSize)
	return s.repo.ListByRecipient(ctx, actor.UserID, unreadOnly, page, pageSize)
}

// CountUnread 未读数
func (s *NotificationService) CountUnread(ctx context.Context, actor userdomain.Actor) (int64, error) {
	return s.repo.CountUnread(ctx, actor.UserID)
}

// MarkRead 标记单条已读
func (s *NotificationService) MarkRead(ctx context.Context, actor userdomain.Actor, id uint) error {
	return s.repo.MarkRead(ctx, actor.UserID, id)
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(ctx context.Context, actor userdomain.Actor) error {
	return s.repo.MarkAllRead(ctx, actor.UserID)
}

// Delete 删除自己的通知
func (s *NotificationService) Delete(ctx context.Context, actor userdomain.Actor, id uint) error {
	return s.repo.Delete(ctx, actor.UserID, id)
}
