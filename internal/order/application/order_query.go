package application

import (
	"context"

	"github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

// OrderQueryService 订单查询服务
type OrderQueryService struct {
	orders domain.OrderRepository
}

// NewOrderQueryService 构造函数
func NewOrderQueryService(orders domain.OrderRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders}
}

// GetOrder 按角色裁剪可见性：
// 顾客只能看到自己的订单，卖家只能看到含自己书目的订单，越权一律按不存在处理
func (s *OrderQueryService) GetOrder(ctx context.Context, actor userdomain.Actor, orderID uint) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case userdomain.RoleAdmin, userdomain.RoleEmployee:
		return order, nil
	case userdomain.RoleSeller:
		if !order.ContainsSeller(actor.UserID) {
			return nil, domain.ErrNotFound
		}
		return order, nil
	case userdomain.RoleCustomer:
		if order.CustomerID != actor.UserID {
			return nil, domain.ErrNotFound
		}
		return order, nil
	default:
		return nil, domain.ErrNotFound
	}
}

// ListMyOrders 顾客订单列表，可按状态过滤，按创建时间倒序
func (s *OrderQueryService) ListMyOrders(ctx context.Context, actor userdomain.Actor, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	page, pageSize = utils.NormalizePagination(page, pageSize)
	return s.orders.ListByCustomer(ctx, actor.UserID, status, pageSize, (page-1)*pageSize)
}

// ListSellerOrders 卖家视角：包含自己至少一本书的订单
func (s *OrderQueryService) ListSellerOrders(ctx context.Context, actor userdomain.Actor, page, pageSize int) ([]*domain.Order, int64, error) {
	if actor.Role != userdomain.RoleSeller && !actor.Role.IsStaff() {
		return nil, 0, domain.ErrForbidden
	}
	page, pageSize = utils.NormalizePagination(page, pageSize)
	return s.orders.ListBySeller(ctx, actor.UserID, pageSize, (page-1)*pageSize)
}

// ListAllOrders 后台全量订单列表，可按状态过滤
func (s *OrderQueryService) ListAllOrders(ctx context.Context, actor userdomain.Actor, status domain.OrderStatus, page, pageSize int) ([]*domain.Order, int64, error) {
	if !actor.Role.IsStaff() {
		return nil, 0, domain.ErrForbidden
	}
	page, pageSize = utils.NormalizePagination(page, pageSize)
	return s.orders.ListAll(ctx, status, pageSize, (page-1)*pageSize)
}
