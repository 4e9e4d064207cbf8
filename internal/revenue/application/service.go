// Package application 营收服务的应用层
package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	orderdomain "github.com/wyfcoding/bookstore/internal/order/domain"
	"github.com/wyfcoding/bookstore/internal/revenue/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
)

// RevenueService 营收服务。只读消费订单数据，从不回写订单
type RevenueService struct {
	repo   domain.RevenueRepository
	orders orderdomain.OrderRepository
}

// NewRevenueService 构造函数
func NewRevenueService(repo domain.RevenueRepository, orders orderdomain.OrderRepository) *RevenueService {
	return &RevenueService{repo: repo, orders: orders}
}

// Recompute 重算某一天的全部卖家营收并整体替换当天数据。
// 以订单行的冻结小计汇总，与结算时一致，不受后续价格变动影响
func (s *RevenueService) Recompute(ctx context.Context, actor userdomain.Actor, day time.Time) error {
	if !actor.Role.IsStaff() {
		return orderdomain.ErrForbidden
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	orders, err := s.orders.ListDeliveredBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return err
	}

	type agg struct {
		orders map[uint]struct{}
		units  int
		gross  decimal.Decimal
	}
	bySeller := make(map[uint]*agg)
	for _, order := range orders {
		for _, line := range order.Lines {
			a, ok := bySeller[line.SellerID]
			if !ok {
				a = &agg{orders: make(map[uint]struct{}), gross: decimal.Zero}
				bySeller[line.SellerID] = a
			}
			a.orders[order.ID] = struct{}{}
			a.units += line.Quantity
			a.gross = a.gross.Add(line.Subtotal)
		}
	}

	now := time.Now()
	rows := make([]*domain.DailyRevenue, 0, len(bySeller))
	for sellerID, a := range bySeller {
		rows = append(rows, &domain.DailyRevenue{
			SellerID:    sellerID,
			Day:         dayStart,
			OrderCount:  len(a.orders),
			UnitsSold:   a.units,
			GrossAmount: a.gross,
			ComputedAt:  now,
		})
	}

	if err := s.repo.ReplaceDay(ctx, dayStart, rows); err != nil {
		return err
	}

	logger.Info(ctx, "revenue recomputed", "day", dayStart.Format("2006-01-02"), "sellers", len(rows))
	return nil
}

// SellerRevenue 卖家查询自己某段时间的营收；后台可查任意卖家
func (s *RevenueService) SellerRevenue(ctx context.Context, actor userdomain.Actor, sellerID uint, from, to time.Time) ([]*domain.DailyRevenue, error) {
	if actor.Role == userdomain.RoleSeller {
		sellerID = actor.UserID
	} else if !actor.Role.IsStaff() {
		return nil, orderdomain.ErrForbidden
	}
	return s.repo.ListBySeller(ctx, sellerID, from, to)
}

// DayRevenue 后台查询某一天全部卖家的营收
func (s *RevenueService) DayRevenue(ctx context.Context, actor userdomain.Actor, day time.Time) ([]*domain.DailyRevenue, error) {
	if !actor.Role.IsStaff() {
		return nil, orderdomain.ErrForbidden
	}
	return s.repo.ListByDay(ctx, day)
}
