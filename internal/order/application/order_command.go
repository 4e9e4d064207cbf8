// Package application 订单服务的应用层，编排购物车到订单的转换与订单生命周期
package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	cartapp "github.com/wyfcoding/bookstore/internal/cart/application"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/metrics"
	"gorm.io/gorm"
)

// 订单号冲突时的最大重试次数
const maxOrderNumberRetries = 3

// TxRunner 事务执行器，由 pkg/db.DB 实现
type TxRunner interface {
	WithTx(ctx context.Context, fn func(*gorm.DB) error) error
}

// OrderNumberSource 订单号来源
type OrderNumberSource interface {
	Next() string
}

// CartStore 订单工作流对购物车的依赖，直接面向 Cart Store 的公开接口，
// 绝不经由其对外 HTTP 层重入
type CartStore interface {
	AddMany(ctx context.Context, actor userdomain.Actor, items []cartapp.Addition) error
}

// CheckoutCommand 结算命令
type CheckoutCommand struct {
	ShippingName       string
	ShippingAddress    string
	ShippingCity       string
	ShippingPostalCode string
	ShippingPhone      string
	// 支付引用（例如储蓄卡标识），网关交互不在本服务范围内
	PaymentRef string
}

// OrderCommandService 订单命令服务
type OrderCommandService struct {
	orders          domain.OrderRepository
	cartLines       cartdomain.CartRepository
	cartStore       CartStore
	books           catalogdomain.BookRepository
	ledger          catalogdomain.InventoryLedger
	users           userdomain.UserRepository
	events          domain.EventPublisher
	tx              TxRunner
	orderNumbers    OrderNumberSource
	checkoutTimeout time.Duration
	metrics         *metrics.Metrics
}

// NewOrderCommandService 构造函数
func NewOrderCommandService(
	orders domain.OrderRepository,
	cartLines cartdomain.CartRepository,
	cartStore CartStore,
	books catalogdomain.BookRepository,
	ledger catalogdomain.InventoryLedger,
	users userdomain.UserRepository,
	events domain.EventPublisher,
	tx TxRunner,
	orderNumbers OrderNumberSource,
	checkoutTimeout time.Duration,
	m *metrics.Metrics,
) *OrderCommandService {
	return &OrderCommandService{
		orders:          orders,
		cartLines:       cartLines,
		cartStore:       cartStore,
		books:           books,
		ledger:          ledger,
		users:           users,
		events:          events,
		tx:              tx,
		orderNumbers:    orderNumbers,
		checkoutTimeout: checkoutTimeout,
		metrics:         m,
	}
}

// Checkout 结算：原子地排空购物车、校验并扣减库存、创建不可变订单。
// 全部步骤在一个事务内提交，任一失败则库存、购物车、订单均保持原状。
func (s *OrderCommandService) Checkout(ctx context.Context, actor userdomain.Actor, cmd CheckoutCommand) (*domain.Order, error) {
	if actor.Role != userdomain.RoleCustomer {
		return nil, domain.ErrForbidden
	}

	ctx, cancel := context.WithTimeout(ctx, s.checkoutTimeout)
	defer cancel()

	start := time.Now()

	lines, err := s.cartLines.ListLines(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	bookIDs := make([]uint, 0, len(lines))
	for _, line := range lines {
		bookIDs = append(bookIDs, line.BookID)
	}
	books, err := s.books.GetMany(ctx, bookIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*catalogdomain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	// 预检：任何一行不满足即整体失败，不产生部分订单
	for _, line := range lines {
		book, ok := byID[line.BookID]
		if !ok || !book.Available {
			title := ""
			if ok {
				title = book.Title
			}
			return nil, &catalogdomain.UnavailableError{BookID: line.BookID, Title: title}
		}
		if book.Stock < line.Quantity {
			s.countOversell()
			return nil, &catalogdomain.InsufficientStockError{BookID: book.ID, Title: book.Title}
		}
	}

	shipping := cmd
	if shipping.ShippingAddress == "" {
		if err := s.fillShippingFromProfile(ctx, actor.UserID, &shipping); err != nil {
			return nil, err
		}
	}

	var order *domain.Order
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		order = s.buildOrder(actor.UserID, lines, byID, shipping)

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.orders.CreateTx(ctx, tx, order); err != nil {
				return err
			}
			// 条件扣减：检查与扣减在单条 UPDATE 内原子完成，
			// 并发争抢最后一件库存时只有一个事务能走到提交
			for _, line := range lines {
				if err := s.ledger.Decrement(ctx, tx, line.BookID, line.Quantity); err != nil {
					return err
				}
			}
			if err := s.cartLines.ClearTx(ctx, tx, actor.UserID); err != nil {
				return err
			}
			return s.events.PublishOrderCreated(ctx, tx, domain.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CustomerID:  order.CustomerID,
				TotalAmount: order.TotalAmount.String(),
				LineCount:   len(order.Lines),
				SellerIDs:   order.SellerIDs(),
				OccurredOn:  time.Now(),
			})
		})

		if errors.Is(err, domain.ErrDuplicateOrderNumber) {
			logger.Warn(ctx, "order number collision, retrying", "order_number", order.OrderNumber, "attempt", attempt+1)
			continue
		}
		break
	}
	if err != nil {
		var insufficient *catalogdomain.InsufficientStockError
		if errors.As(err, &insufficient) {
			s.countOversell()
			if insufficient.Title == "" {
				if book, ok := byID[insufficient.BookID]; ok {
					insufficient.Title = book.Title
				}
			}
			return nil, insufficient
		}
		if isDomainError(err) {
			return nil, err
		}
		logger.Error(ctx, "checkout transaction failed", "customer_id", actor.UserID, "error", err)
		return nil, domain.ErrPersistence
	}

	if s.metrics != nil {
		s.metrics.CheckoutsTotal.Inc()
		s.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	}
	logger.Info(ctx, "checkout completed",
		"order_number", order.OrderNumber,
		"customer_id", actor.UserID,
		"total_amount", order.TotalAmount.String(),
	)
	return order, nil
}

// buildOrder 组装订单及订单行，单价与书名在此刻快照
func (s *OrderCommandService) buildOrder(customerID uint, lines []*cartdomain.CartLine, byID map[uint]*catalogdomain.Book, shipping CheckoutCommand) *domain.Order {
	order := &domain.Order{
		OrderNumber:        s.orderNumbers.Next(),
		CustomerID:         customerID,
		Status:             domain.OrderStatusPending,
		PaymentStatus:      domain.PaymentStatusPending,
		ShippingName:       shipping.ShippingName,
		ShippingAddress:    shipping.ShippingAddress,
		ShippingCity:       shipping.ShippingCity,
		ShippingPostalCode: shipping.ShippingPostalCode,
		ShippingPhone:      shipping.ShippingPhone,
		PaymentRef:         shipping.PaymentRef,
	}

	total := decimal.Zero
	for _, line := range lines {
		book := byID[line.BookID]
		subtotal := book.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Lines = append(order.Lines, domain.OrderLine{
			BookID:    book.ID,
			SellerID:  book.SellerID,
			Title:     book.Title,
			Quantity:  line.Quantity,
			UnitPrice: book.Price,
			Subtotal:  subtotal,
		})
		total = total.Add(subtotal)
	}
	order.TotalAmount = total
	return order
}

// fillShippingFromProfile 结算表单未填地址时，从顾客资料快照
func (s *OrderCommandService) fillShippingFromProfile(ctx context.Context, customerID uint, shipping *CheckoutCommand) error {
	user, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	shipping.ShippingName = user.Username
	shipping.ShippingAddress = user.Address
	shipping.ShippingCity = user.City
	shipping.ShippingPostalCode = user.PostalCode
	shipping.ShippingPhone = user.Phone
	return nil
}

// Cancel 取消订单：仅 PENDING/PROCESSING 可取消；
// 恢复每一行库存并置 CANCELLED/REFUNDED，整体原子
func (s *OrderCommandService) Cancel(ctx context.Context, actor userdomain.Actor, orderID uint, reason string) error {
	order, err := s.loadForMutation(ctx, actor, orderID)
	if err != nil {
		return err
	}

	// 顾客只能从 PENDING 取消自己的订单；后台人员可从 PROCESSING 取消
	if actor.Role == userdomain.RoleCustomer && order.Status != domain.OrderStatusPending {
		return &domain.InvalidTransitionError{From: order.Status, To: domain.OrderStatusCancelled}
	}
	if !order.CanBeCancelled() {
		return &domain.InvalidTransitionError{From: order.Status, To: domain.OrderStatusCancelled}
	}

	from := order.Status
	order.ApplyStatus(domain.OrderStatusCancelled, time.Now())

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range order.Lines {
			if err := s.ledger.Restore(ctx, tx, line.BookID, line.Quantity); err != nil {
				return err
			}
		}
		if err := s.orders.SaveTx(ctx, tx, order); err != nil {
			return err
		}
		return s.events.PublishOrderCancelled(ctx, tx, domain.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			Reason:      reason,
			OccurredOn:  time.Now(),
		})
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		logger.Error(ctx, "cancel transaction failed", "order_id", orderID, "error", err)
		return domain.ErrPersistence
	}

	if s.metrics != nil {
		s.metrics.CancellationsTotal.Inc()
	}
	logger.Info(ctx, "order cancelled", "order_number", order.OrderNumber, "from_status", from)
	return nil
}

// UpdateStatus 更新订单状态。
// 后台人员可直接设置任意非取消状态（取消必须走 Cancel 以恢复库存）；
// 顾客仅能取消自己的订单；卖家只读。
func (s *OrderCommandService) UpdateStatus(ctx context.Context, actor userdomain.Actor, orderID uint, next domain.OrderStatus, trackingNumber string) error {
	if !next.Valid() {
		return &domain.InvalidTransitionError{To: next}
	}

	if next == domain.OrderStatusCancelled {
		return s.Cancel(ctx, actor, orderID, "cancelled via status update")
	}

	if !actor.Role.IsStaff() {
		return domain.ErrForbidden
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == domain.OrderStatusCancelled {
		return &domain.InvalidTransitionError{From: order.Status, To: next}
	}

	from := order.Status
	order.ApplyStatus(next, time.Now())
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.SaveTx(ctx, tx, order); err != nil {
			return err
		}
		return s.events.PublishOrderStatusChanged(ctx, tx, domain.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			FromStatus:  from,
			ToStatus:    next,
			OccurredOn:  time.Now(),
		})
	})
	if err != nil {
		logger.Error(ctx, "status update transaction failed", "order_id", orderID, "error", err)
		return domain.ErrPersistence
	}

	logger.Info(ctx, "order status updated", "order_number", order.OrderNumber, "from", from, "to", next)
	return nil
}

// Reorder 再次购买：当且仅当订单内每本书仍可购且库存充足时，
// 将其整体重新加入顾客购物车；否则整体失败并指明缺货书目。
// 加购交给购物车服务一次完成，失败时购物车不会只装进一半
func (s *OrderCommandService) Reorder(ctx context.Context, actor userdomain.Actor, orderID uint) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	// 跨租户访问按不存在处理，避免订单号枚举
	if order.CustomerID != actor.UserID {
		return domain.ErrNotFound
	}

	var unavailable []string
	items := make([]cartapp.Addition, 0, len(order.Lines))
	for _, line := range order.Lines {
		ok, err := s.ledger.CheckAvailable(ctx, line.BookID, line.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			unavailable = append(unavailable, line.Title)
			continue
		}
		items = append(items, cartapp.Addition{BookID: line.BookID, Quantity: line.Quantity})
	}
	if len(unavailable) > 0 {
		return &domain.ItemsUnavailableError{Titles: unavailable}
	}

	if err := s.cartStore.AddMany(ctx, actor, items); err != nil {
		return err
	}

	logger.Info(ctx, "order reordered into cart", "order_number", order.OrderNumber, "customer_id", actor.UserID)
	return nil
}

// loadForMutation 按角色加载可变更订单：
// 顾客只能触达自己的订单（否则视为不存在），卖家无变更权限
func (s *OrderCommandService) loadForMutation(ctx context.Context, actor userdomain.Actor, orderID uint) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case userdomain.RoleAdmin, userdomain.RoleEmployee:
		return order, nil
	case userdomain.RoleCustomer:
		if order.CustomerID != actor.UserID {
			return nil, domain.ErrNotFound
		}
		return order, nil
	default:
		return nil, domain.ErrForbidden
	}
}

// isDomainError 区分领域错误与底层持久化失败
func isDomainError(err error) bool {
	var insufficient *catalogdomain.InsufficientStockError
	var unavailable *catalogdomain.UnavailableError
	var transition *domain.InvalidTransitionError
	var items *domain.ItemsUnavailableError
	return errors.Is(err, domain.ErrEmptyCart) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &unavailable) ||
		errors.As(err, &transition) ||
		errors.As(err, &items)
}

func (s *OrderCommandService) countOversell() {
	if s.metrics != nil {
		s.metrics.OversellRejectionsTotal.Inc()
	}
}
