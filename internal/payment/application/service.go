// Package application 支付服务的应用层
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/bookstore/internal/payment/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

// AddCardCommand 添加卡片命令，原始卡号只在此处短暂经手
type AddCardCommand struct {
	Number      string
	Brand       string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int
	IsDefault   bool
}

// CardService 卡片服务
type CardService struct {
	repo domain.CardRepository
}

// NewCardService 构造函数
func NewCardService(repo domain.CardRepository) *CardService {
	return &CardService{repo: repo}
}

// AddCard 保存卡片。卡号立即脱敏，完整卡号不落库不记日志
func (s *CardService) AddCard(ctx context.Context, actor userdomain.Actor, cmd AddCardCommand) (*domain.SavedCard, error) {
	if cmd.ExpiryMonth < 1 || cmd.ExpiryMonth > 12 {
		return nil, domain.ErrInvalidExpiry
	}

	card := &domain.SavedCard{
		CustomerID:   actor.UserID,
		MaskedNumber: utils.MaskCardNumber(cmd.Number),
		Brand:        cmd.Brand,
		HolderName:   cmd.HolderName,
		ExpiryMonth:  cmd.ExpiryMonth,
		ExpiryYear:   cmd.ExpiryYear,
		IsDefault:    cmd.IsDefault,
	}
	if card.Expired(time.Now()) {
		return nil, domain.ErrInvalidExpiry
	}

	if cmd.IsDefault {
		if err := s.repo.ClearDefault(ctx, actor.UserID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, card); err != nil {
		return nil, err
	}

	logger.Info(ctx, "card saved", "customer_id", actor.UserID, "card_id", card.ID)
	return card, nil
}

// ListCards 列出自己的卡片，默认卡优先
func (s *CardService) ListCards(ctx context.Context, actor userdomain.Actor) ([]*domain.SavedCard, error) {
	return s.repo.ListByCustomer(ctx, actor.UserID)
}

// DeleteCard 删除自己的卡片
func (s *CardService) DeleteCard(ctx context.Context, actor userdomain.Actor, cardID uint) error {
	return s.repo.Delete(ctx, actor.UserID, cardID)
}

// SetDefaultCard 设置默认卡片，同一顾客至多一张默认卡
func (s *CardService) SetDefaultCard(ctx context.Context, actor userdomain.Actor, cardID uint) error {
	if _, err := s.repo.Get(ctx, actor.UserID, cardID); err != nil {
		return err
	}
	if err := s.repo.ClearDefault(ctx, actor.UserID); err != nil {
		return err
	}
	return s.repo.SetDefault(ctx, actor.UserID, cardID)
}

// PaymentRef 将卡片解析为结算时记录在订单上的支付引用；
// 卡片不存在或已过期返回错误
func (s *CardService) PaymentRef(ctx context.Context, actor userdomain.Actor, cardID uint) (string, error) {
	card, err := s.repo.Get(ctx, actor.UserID, cardID)
	if err != nil {
		return "", err
	}
	if card.Expired(time.Now()) {
		return "", domain.ErrInvalidExpiry
	}
	return fmt.Sprintf("card:%d:%s", card.ID, card.MaskedNumber), nil
}
