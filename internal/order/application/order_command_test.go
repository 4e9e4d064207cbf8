package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	cartapp "github.com/wyfcoding/bookstore/internal/cart/application"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// memStore 内存存储，充当订单/图书/购物车仓储与库存账本的共同后端。
// 带 Tx 后缀的方法只在 WithTx 持锁期间被调用，本身不加锁；
// 其余方法自行加锁。WithTx 在回调出错时恢复快照，模拟事务回滚。
type memStore struct {
	mu          sync.Mutex
	books       map[uint]*catalogdomain.Book
	orders      map[uint]*domain.Order
	cart        map[uint][]*cartdomain.CartLine
	users       map[uint]*userdomain.User
	events      []string
	nextOrderID uint
	nextLineID  uint

	failCreate error // CreateTx 注入错误
}

func newMemStore() *memStore {
	return &memStore{
		books:       make(map[uint]*catalogdomain.Book),
		orders:      make(map[uint]*domain.Order),
		cart:        make(map[uint][]*cartdomain.CartLine),
		users:       make(map[uint]*userdomain.User),
		nextOrderID: 1,
		nextLineID:  1,
	}
}

func (s *memStore) addBook(id uint, title string, price string, stock int, sellerID uint, available bool) {
	p, _ := decimal.NewFromString(price)
	book := &catalogdomain.Book{
		Title:     title,
		Price:     p,
		Stock:     stock,
		Available: available,
		SellerID:  sellerID,
	}
	book.ID = id
	s.books[id] = book
}

func (s *memStore) addCartLine(customerID, bookID uint, quantity int) {
	line := &cartdomain.CartLine{CustomerID: customerID, BookID: bookID, Quantity: quantity}
	line.ID = s.nextLineID
	s.nextLineID++
	s.cart[customerID] = append(s.cart[customerID], line)
}

func (s *memStore) addUser(id uint, username, address string) {
	user := &userdomain.User{Username: username, Address: address, City: "Springfield", Role: userdomain.RoleCustomer}
	user.ID = id
	s.users[id] = user
}

type storeState struct {
	books  map[uint]catalogdomain.Book
	orders map[uint]domain.Order
	cart   map[uint][]cartdomain.CartLine
	events int
}

func (s *memStore) snapshot() storeState {
	st := storeState{
		books:  make(map[uint]catalogdomain.Book, len(s.books)),
		orders: make(map[uint]domain.Order, len(s.orders)),
		cart:   make(map[uint][]cartdomain.CartLine, len(s.cart)),
		events: len(s.events),
	}
	for id, b := range s.books {
		st.books[id] = *b
	}
	for id, o := range s.orders {
		cp := *o
		cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
		st.orders[id] = cp
	}
	for cid, lines := range s.cart {
		cp := make([]cartdomain.CartLine, len(lines))
		for i, l := range lines {
			cp[i] = *l
		}
		st.cart[cid] = cp
	}
	return st
}

func (s *memStore) restore(st storeState) {
	s.books = make(map[uint]*catalogdomain.Book, len(st.books))
	for id, b := range st.books {
		cp := b
		s.books[id] = &cp
	}
	s.orders = make(map[uint]*domain.Order, len(st.orders))
	for id, o := range st.orders {
		cp := o
		s.orders[id] = &cp
	}
	s.cart = make(map[uint][]*cartdomain.CartLine, len(st.cart))
	for cid, lines := range st.cart {
		cp := make([]*cartdomain.CartLine, len(lines))
		for i := range lines {
			l := lines[i]
			cp[i] = &l
		}
		s.cart[cid] = cp
	}
	s.events = s.events[:st.events]
}

// WithTx 串行化的假事务：持锁执行回调，失败时整体回滚
func (s *memStore) WithTx(ctx context.Context, fn func(*gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(st)
		return err
	}
	return nil
}

// --- domain.OrderRepository ---

type fakeOrderRepo struct{ store *memStore }

func (r *fakeOrderRepo) CreateTx(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	s := r.store
	if s.failCreate != nil {
		return s.failCreate
	}
	for _, existing := range s.orders {
		if existing.OrderNumber == order.OrderNumber {
			return domain.ErrDuplicateOrderNumber
		}
	}
	order.ID = s.nextOrderID
	s.nextOrderID++
	order.CreatedAt = time.Now()
	cp := *order
	cp.Lines = append([]domain.OrderLine(nil), order.Lines...)
	s.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) SaveTx(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	stored, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Status = order.Status
	stored.PaymentStatus = order.PaymentStatus
	stored.TrackingNumber = order.TrackingNumber
	stored.ShippedAt = order.ShippedAt
	stored.DeliveredAt = order.DeliveredAt
	return nil
}

func (r *fakeOrderRepo) Get(ctx context.Context, orderID uint) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *order
	cp.Lines = append([]domain.OrderLine(nil), order.Lines...)
	return &cp, nil
}

func (r *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID uint, status domain.OrderStatus, limit, offset int) ([]*domain.Order, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.store.orders {
		if o.CustomerID != customerID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) ListBySeller(ctx context.Context, sellerID uint, limit, offset int) ([]*domain.Order, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.store.orders {
		if o.ContainsSeller(sellerID) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) ListAll(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.store.orders {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.store.orders {
		if o.DeliveredAt != nil && !o.DeliveredAt.Before(from) && o.DeliveredAt.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- cartdomain.CartRepository ---

type fakeCartRepo struct{ store *memStore }

func (r *fakeCartRepo) GetLine(ctx context.Context, customerID, lineID uint) (*cartdomain.CartLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.cart[customerID] {
		if l.ID == lineID {
			return l, nil
		}
	}
	return nil, cartdomain.ErrLineNotFound
}

func (r *fakeCartRepo) GetLineByBook(ctx context.Context, customerID, bookID uint) (*cartdomain.CartLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.cart[customerID] {
		if l.BookID == bookID {
			return l, nil
		}
	}
	return nil, cartdomain.ErrLineNotFound
}

func (r *fakeCartRepo) ListLines(ctx context.Context, customerID uint) ([]*cartdomain.CartLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	lines := r.store.cart[customerID]
	out := make([]*cartdomain.CartLine, len(lines))
	for i, l := range lines {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}

func (r *fakeCartRepo) Save(ctx context.Context, line *cartdomain.CartLine) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.cart[line.CustomerID] {
		if l.BookID == line.BookID {
			l.Quantity += line.Quantity
			return nil
		}
	}
	line.ID = r.store.nextLineID
	r.store.nextLineID++
	r.store.cart[line.CustomerID] = append(r.store.cart[line.CustomerID], line)
	return nil
}

func (r *fakeCartRepo) SetQuantity(ctx context.Context, customerID, lineID uint, quantity int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, l := range r.store.cart[customerID] {
		if l.ID == lineID {
			l.Quantity = quantity
			return nil
		}
	}
	return cartdomain.ErrLineNotFound
}

func (r *fakeCartRepo) Delete(ctx context.Context, customerID, lineID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	lines := r.store.cart[customerID]
	for i, l := range lines {
		if l.ID == lineID {
			r.store.cart[customerID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return cartdomain.ErrLineNotFound
}

func (r *fakeCartRepo) Clear(ctx context.Context, customerID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.cart, customerID)
	return nil
}

func (r *fakeCartRepo) ClearTx(ctx context.Context, tx *gorm.DB, customerID uint) error {
	delete(r.store.cart, customerID)
	return nil
}

// --- catalogdomain.BookRepository（只实现命令服务用到的读路径）---

type fakeBookRepo struct{ store *memStore }

func (r *fakeBookRepo) Save(ctx context.Context, book *catalogdomain.Book) error { return nil }

func (r *fakeBookRepo) Get(ctx context.Context, id uint) (*catalogdomain.Book, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	book, ok := r.store.books[id]
	if !ok {
		return nil, catalogdomain.ErrNotFound
	}
	cp := *book
	return &cp, nil
}

func (r *fakeBookRepo) GetMany(ctx context.Context, ids []uint) ([]*catalogdomain.Book, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*catalogdomain.Book
	for _, id := range ids {
		if book, ok := r.store.books[id]; ok {
			cp := *book
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeBookRepo) Update(ctx context.Context, book *catalogdomain.Book) error { return nil }

func (r *fakeBookRepo) List(ctx context.Context, query catalogdomain.BookQuery) ([]*catalogdomain.Book, int64, error) {
	return nil, 0, nil
}

// --- catalogdomain.InventoryLedger，与条件 UPDATE 语义一致 ---

type fakeLedger struct{ store *memStore }

func (l *fakeLedger) CheckAvailable(ctx context.Context, bookID uint, quantity int) (bool, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	book, ok := l.store.books[bookID]
	if !ok {
		return false, nil
	}
	return book.Available && book.Stock >= quantity, nil
}

func (l *fakeLedger) Decrement(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) error {
	book, ok := l.store.books[bookID]
	if !ok || !book.Available || book.Stock < quantity {
		return &catalogdomain.InsufficientStockError{BookID: bookID}
	}
	book.Stock -= quantity
	return nil
}

func (l *fakeLedger) Restore(ctx context.Context, tx *gorm.DB, bookID uint, quantity int) error {
	book, ok := l.store.books[bookID]
	if !ok {
		return catalogdomain.ErrNotFound
	}
	book.Stock += quantity
	return nil
}

// --- userdomain.UserRepository ---

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) Save(ctx context.Context, user *userdomain.User) error { return nil }

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*userdomain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, userdomain.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	return nil, userdomain.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return nil, userdomain.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *userdomain.User) error { return nil }

// --- domain.EventPublisher ---

type fakeEventPublisher struct{ store *memStore }

func (p *fakeEventPublisher) PublishOrderCreated(ctx context.Context, tx *gorm.DB, event domain.OrderCreatedEvent) error {
	p.store.events = append(p.store.events, domain.EventTypeOrderCreated)
	return nil
}

func (p *fakeEventPublisher) PublishOrderStatusChanged(ctx context.Context, tx *gorm.DB, event domain.OrderStatusChangedEvent) error {
	p.store.events = append(p.store.events, domain.EventTypeOrderStatusChanged)
	return nil
}

func (p *fakeEventPublisher) PublishOrderCancelled(ctx context.Context, tx *gorm.DB, event domain.OrderCancelledEvent) error {
	p.store.events = append(p.store.events, domain.EventTypeOrderCancelled)
	return nil
}

// --- 订单号来源 ---

type seqNumbers struct {
	mu    sync.Mutex
	next  int
	fixed []string // 先按序返回 fixed，再递增编号
}

func (n *seqNumbers) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.fixed) > 0 {
		v := n.fixed[0]
		n.fixed = n.fixed[1:]
		return v
	}
	n.next++
	return fmt.Sprintf("BK20260829-%04d", n.next)
}

// --- CartStore ---

type fakeCartStore struct {
	repo   *fakeCartRepo
	ledger *fakeLedger
	books  *fakeBookRepo
}

func (s *fakeCartStore) AddMany(ctx context.Context, actor userdomain.Actor, items []cartapp.Addition) error {
	for _, item := range items {
		book, err := s.books.Get(ctx, item.BookID)
		if err != nil {
			return err
		}
		if !book.Available {
			return &catalogdomain.UnavailableError{BookID: item.BookID, Title: book.Title}
		}
		ok, err := s.ledger.CheckAvailable(ctx, item.BookID, item.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return &catalogdomain.InsufficientStockError{BookID: item.BookID, Title: book.Title}
		}
	}
	for _, item := range items {
		line := &cartdomain.CartLine{CustomerID: actor.UserID, BookID: item.BookID, Quantity: item.Quantity}
		if err := s.repo.Save(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func newTestService(store *memStore) (*OrderCommandService, *fakeOrderRepo) {
	orders := &fakeOrderRepo{store: store}
	cartRepo := &fakeCartRepo{store: store}
	books := &fakeBookRepo{store: store}
	ledger := &fakeLedger{store: store}
	users := &fakeUserRepo{store: store}
	events := &fakeEventPublisher{store: store}
	cartStore := &fakeCartStore{repo: cartRepo, ledger: ledger, books: books}
	svc := NewOrderCommandService(
		orders, cartRepo, cartStore, books, ledger, users, events,
		store, &seqNumbers{}, 5*time.Second, nil,
	)
	return svc, orders
}

var customer = userdomain.Actor{UserID: 1, Role: userdomain.RoleCustomer}

func TestCheckout(t *testing.T) {
	t.Run("creates order with frozen prices and empties cart", func(t *testing.T) {
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addBook(11, "Neuromancer", "12.50", 3, 101, true)
		store.addCartLine(1, 10, 2)
		store.addCartLine(1, 11, 1)
		svc, _ := newTestService(store)

		order, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}

		want, _ := decimal.NewFromString("52.30")
		if !order.TotalAmount.Equal(want) {
			t.Errorf("total = %s, want %s", order.TotalAmount, want)
		}
		if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusPending {
			t.Errorf("unexpected initial statuses: %s/%s", order.Status, order.PaymentStatus)
		}
		if len(store.cart[1]) != 0 {
			t.Errorf("cart not emptied: %d lines remain", len(store.cart[1]))
		}
		if store.books[10].Stock != 3 || store.books[11].Stock != 2 {
			t.Errorf("stock not decremented: %d, %d", store.books[10].Stock, store.books[11].Stock)
		}
		if len(store.events) != 1 || store.events[0] != domain.EventTypeOrderCreated {
			t.Errorf("expected one order.created event, got %v", store.events)
		}
		// 地址从顾客资料快照
		if order.ShippingAddress != "1 Elm St" {
			t.Errorf("shipping address = %q, want profile address", order.ShippingAddress)
		}
	})

	t.Run("total stays frozen after price change", func(t *testing.T) {
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addCartLine(1, 10, 1)
		svc, orders := newTestService(store)

		placed, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}

		newPrice, _ := decimal.NewFromString("39.90")
		store.books[10].Price = newPrice

		reloaded, err := orders.Get(context.Background(), placed.ID)
		if err != nil {
			t.Fatalf("get order failed: %v", err)
		}
		want, _ := decimal.NewFromString("19.90")
		if !reloaded.TotalAmount.Equal(want) {
			t.Errorf("total = %s, want frozen %s", reloaded.TotalAmount, want)
		}
		if !reloaded.Lines[0].UnitPrice.Equal(want) {
			t.Errorf("line price = %s, want frozen %s", reloaded.Lines[0].UnitPrice, want)
		}
	})

	t.Run("empty cart rejected", func(t *testing.T) {
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		svc, _ := newTestService(store)

		if _, err := svc.Checkout(context.Background(), customer, CheckoutCommand{}); !errors.Is(err, domain.ErrEmptyCart) {
			t.Errorf("err = %v, want ErrEmptyCart", err)
		}
	})

	t.Run("insufficient stock fails whole checkout", func(t *testing.T) {
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addBook(11, "Neuromancer", "12.50", 1, 101, true)
		store.addCartLine(1, 10, 2)
		store.addCartLine(1, 11, 3) // 超过库存
		svc, _ := newTestService(store)

		_, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		var insufficient *catalogdomain.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("err = %v, want InsufficientStockError", err)
		}
		if insufficient.BookID != 11 {
			t.Errorf("failing book = %d, want 11", insufficient.BookID)
		}
		// 全有或全无：另一行的库存与购物车原样保留
		if store.books[10].Stock != 5 {
			t.Errorf("stock touched despite failure: %d", store.books[10].Stock)
		}
		if len(store.cart[1]) != 2 {
			t.Errorf("cart modified despite failure")
		}
		if len(store.orders) != 0 {
			t.Errorf("partial order created")
		}
	})

	t.Run("unavailable book fails checkout", func(t *testing.T) {
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, false)
		store.addCartLine(1, 10, 1)
		svc, _ := newTestService(store)

		_, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		var unavailable *catalogdomain.UnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("err = %v, want UnavailableError", err)
		}
	})

	t.Run("persistence failure rolls back everything", func(t *testing.T) {
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addCartLine(1, 10, 2)
		store.failCreate = errors.New("connection reset")
		svc, _ := newTestService(store)

		if _, err := svc.Checkout(context.Background(), customer, CheckoutCommand{}); !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("err = %v, want ErrPersistence", err)
		}
		if store.books[10].Stock != 5 || len(store.cart[1]) != 1 || len(store.events) != 0 {
			t.Errorf("state leaked out of failed transaction")
		}
	})

	t.Run("retries on order number collision", func(t *testing.T) {
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addUser(2, "bob", "2 Oak St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addCartLine(1, 10, 1)
		store.addCartLine(2, 10, 1)

		orders := &fakeOrderRepo{store: store}
		cartRepo := &fakeCartRepo{store: store}
		books := &fakeBookRepo{store: store}
		ledger := &fakeLedger{store: store}
		users := &fakeUserRepo{store: store}
		events := &fakeEventPublisher{store: store}
		// 两次结算拿到同一个号，第二次应在重试后换号成功
		numbers := &seqNumbers{fixed: []string{"BK-SAME", "BK-SAME"}}
		svc := NewOrderCommandService(
			orders, cartRepo, &fakeCartStore{repo: cartRepo, ledger: ledger, books: books},
			books, ledger, users, events, store, numbers, 5*time.Second, nil,
		)

		first, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		if err != nil {
			t.Fatalf("first checkout failed: %v", err)
		}
		second, err := svc.Checkout(context.Background(), userdomain.Actor{UserID: 2, Role: userdomain.RoleCustomer}, CheckoutCommand{})
		if err != nil {
			t.Fatalf("second checkout failed: %v", err)
		}
		if first.OrderNumber == second.OrderNumber {
			t.Errorf("duplicate order number survived: %s", first.OrderNumber)
		}
	})

	t.Run("non-customer roles cannot check out", func(t *testing.T) {
		store := newMemStore()
		svc, _ := newTestService(store)
		seller := userdomain.Actor{UserID: 9, Role: userdomain.RoleSeller}
		if _, err := svc.Checkout(context.Background(), seller, CheckoutCommand{}); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	store := newMemStore()
	store.addUser(1, "alice", "1 Elm St")
	store.addUser(2, "bob", "2 Oak St")
	store.addBook(10, "Dune", "19.90", 1, 100, true) // 只剩一件
	store.addCartLine(1, 10, 1)
	store.addCartLine(2, 10, 1)
	svc, _ := newTestService(store)

	var mu sync.Mutex
	var failures []error
	var successes int

	g := new(errgroup.Group)
	for _, id := range []uint{1, 2} {
		actor := userdomain.Actor{UserID: id, Role: userdomain.RoleCustomer}
		g.Go(func() error {
			_, err := svc.Checkout(context.Background(), actor, CheckoutCommand{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
			} else {
				successes++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	var insufficient *catalogdomain.InsufficientStockError
	if len(failures) != 1 || !errors.As(failures[0], &insufficient) {
		t.Fatalf("failures = %v, want one InsufficientStockError", failures)
	}
	if store.books[10].Stock != 0 {
		t.Errorf("stock = %d, want 0", store.books[10].Stock)
	}
	if len(store.orders) != 1 {
		t.Errorf("orders = %d, want 1", len(store.orders))
	}
}

func TestCancel(t *testing.T) {
	place := func(t *testing.T) (*memStore, *OrderCommandService, *domain.Order) {
		t.Helper()
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addCartLine(1, 10, 2)
		svc, _ := newTestService(store)
		order, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
		return store, svc, order
	}

	t.Run("pending order cancel restores stock and refunds", func(t *testing.T) {
		store, svc, order := place(t)

		if err := svc.Cancel(context.Background(), customer, order.ID, "changed my mind"); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}

		stored := store.orders[order.ID]
		if stored.Status != domain.OrderStatusCancelled {
			t.Errorf("status = %s, want CANCELLED", stored.Status)
		}
		if stored.PaymentStatus != domain.PaymentStatusRefunded {
			t.Errorf("payment = %s, want REFUNDED", stored.PaymentStatus)
		}
		if store.books[10].Stock != 5 {
			t.Errorf("stock = %d, want restored 5", store.books[10].Stock)
		}
		if store.events[len(store.events)-1] != domain.EventTypeOrderCancelled {
			t.Errorf("missing order.cancelled event")
		}
	})

	t.Run("second cancel fails and does not double-restore", func(t *testing.T) {
		store, svc, order := place(t)

		if err := svc.Cancel(context.Background(), customer, order.ID, ""); err != nil {
			t.Fatalf("first cancel failed: %v", err)
		}
		err := svc.Cancel(context.Background(), customer, order.ID, "")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("err = %v, want InvalidTransitionError", err)
		}
		if store.books[10].Stock != 5 {
			t.Errorf("stock = %d, double restore happened", store.books[10].Stock)
		}
	})

	t.Run("customer cannot cancel processing order, staff can", func(t *testing.T) {
		store, svc, order := place(t)
		admin := userdomain.Actor{UserID: 50, Role: userdomain.RoleAdmin}
		if err := svc.UpdateStatus(context.Background(), admin, order.ID, domain.OrderStatusProcessing, ""); err != nil {
			t.Fatalf("move to processing failed: %v", err)
		}

		err := svc.Cancel(context.Background(), customer, order.ID, "")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("customer cancel of processing: err = %v, want InvalidTransitionError", err)
		}

		if err := svc.Cancel(context.Background(), admin, order.ID, "fraud check"); err != nil {
			t.Fatalf("staff cancel of processing failed: %v", err)
		}
		if store.books[10].Stock != 5 {
			t.Errorf("stock = %d, want restored 5", store.books[10].Stock)
		}
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		_, svc, order := place(t)
		admin := userdomain.Actor{UserID: 50, Role: userdomain.RoleAdmin}
		if err := svc.UpdateStatus(context.Background(), admin, order.ID, domain.OrderStatusShipped, "TRK123"); err != nil {
			t.Fatalf("ship failed: %v", err)
		}

		err := svc.Cancel(context.Background(), admin, order.ID, "")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Errorf("err = %v, want InvalidTransitionError", err)
		}
	})

	t.Run("cross-customer cancel looks like missing order", func(t *testing.T) {
		_, svc, order := place(t)
		mallory := userdomain.Actor{UserID: 66, Role: userdomain.RoleCustomer}
		if err := svc.Cancel(context.Background(), mallory, order.ID, ""); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	place := func(t *testing.T) (*memStore, *OrderCommandService, *domain.Order) {
		t.Helper()
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addCartLine(1, 10, 1)
		svc, _ := newTestService(store)
		order, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
		return store, svc, order
	}

	admin := userdomain.Actor{UserID: 50, Role: userdomain.RoleAdmin}

	t.Run("delivered marks payment paid", func(t *testing.T) {
		store, svc, order := place(t)
		if err := svc.UpdateStatus(context.Background(), admin, order.ID, domain.OrderStatusDelivered, ""); err != nil {
			t.Fatalf("deliver failed: %v", err)
		}
		stored := store.orders[order.ID]
		if stored.PaymentStatus != domain.PaymentStatusPaid {
			t.Errorf("payment = %s, want PAID", stored.PaymentStatus)
		}
		if stored.DeliveredAt == nil {
			t.Errorf("delivered_at not set")
		}
	})

	t.Run("cancel via status update restores stock", func(t *testing.T) {
		store, svc, order := place(t)
		if err := svc.UpdateStatus(context.Background(), admin, order.ID, domain.OrderStatusCancelled, ""); err != nil {
			t.Fatalf("cancel via status failed: %v", err)
		}
		if store.books[10].Stock != 5 {
			t.Errorf("stock = %d, want restored 5 (cancel path skipped)", store.books[10].Stock)
		}
		if store.orders[order.ID].PaymentStatus != domain.PaymentStatusRefunded {
			t.Errorf("payment not refunded via status-update cancel")
		}
	})

	t.Run("seller cannot update status", func(t *testing.T) {
		_, svc, order := place(t)
		seller := userdomain.Actor{UserID: 100, Role: userdomain.RoleSeller}
		if err := svc.UpdateStatus(context.Background(), seller, order.ID, domain.OrderStatusShipped, ""); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		_, svc, order := place(t)
		err := svc.UpdateStatus(context.Background(), admin, order.ID, "TELEPORTED", "")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Errorf("err = %v, want InvalidTransitionError", err)
		}
	})
}

func TestReorder(t *testing.T) {
	place := func(t *testing.T) (*memStore, *OrderCommandService, *domain.Order) {
		t.Helper()
		store := newMemStore()
		store.addUser(1, "alice", "1 Elm St")
		store.addBook(10, "Dune", "19.90", 5, 100, true)
		store.addBook(11, "Neuromancer", "12.50", 5, 101, true)
		store.addCartLine(1, 10, 2)
		store.addCartLine(1, 11, 1)
		svc, _ := newTestService(store)
		order, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
		return store, svc, order
	}

	t.Run("refills cart from past order", func(t *testing.T) {
		store, svc, order := place(t)
		if err := svc.Reorder(context.Background(), customer, order.ID); err != nil {
			t.Fatalf("reorder failed: %v", err)
		}
		if len(store.cart[1]) != 2 {
			t.Fatalf("cart lines = %d, want 2", len(store.cart[1]))
		}
		if store.cart[1][0].Quantity != 2 || store.cart[1][1].Quantity != 1 {
			t.Errorf("quantities not carried over: %+v", store.cart[1])
		}
	})

	t.Run("fails whole reorder when any line lacks stock", func(t *testing.T) {
		store, svc, order := place(t)
		store.books[11].Stock = 0

		err := svc.Reorder(context.Background(), customer, order.ID)
		var items *domain.ItemsUnavailableError
		if !errors.As(err, &items) {
			t.Fatalf("err = %v, want ItemsUnavailableError", err)
		}
		if len(items.Titles) != 1 || items.Titles[0] != "Neuromancer" {
			t.Errorf("titles = %v, want [Neuromancer]", items.Titles)
		}
		if len(store.cart[1]) != 0 {
			t.Errorf("cart partially filled on failed reorder")
		}
	})

	t.Run("foreign order invisible", func(t *testing.T) {
		_, svc, order := place(t)
		mallory := userdomain.Actor{UserID: 66, Role: userdomain.RoleCustomer}
		if err := svc.Reorder(context.Background(), mallory, order.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
