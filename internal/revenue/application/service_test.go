package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	orderdomain "github.com/wyfcoding/bookstore/internal/order/domain"
	"github.com/wyfcoding/bookstore/internal/revenue/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"gorm.io/gorm"
)

type fakeRevenueRepo struct {
	rows map[string][]*domain.DailyRevenue // key: day
}

func newFakeRevenueRepo() *fakeRevenueRepo {
	return &fakeRevenueRepo{rows: make(map[string][]*domain.DailyRevenue)}
}

func (r *fakeRevenueRepo) ReplaceDay(ctx context.Context, day time.Time, rows []*domain.DailyRevenue) error {
	r.rows[day.Format("2006-01-02")] = rows
	return nil
}

func (r *fakeRevenueRepo) ListBySeller(ctx context.Context, sellerID uint, from, to time.Time) ([]*domain.DailyRevenue, error) {
	var out []*domain.DailyRevenue
	for _, rows := range r.rows {
		for _, row := range rows {
			if row.SellerID == sellerID && !row.Day.Before(from) && !row.Day.After(to) {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (r *fakeRevenueRepo) ListByDay(ctx context.Context, day time.Time) ([]*domain.DailyRevenue, error) {
	return r.rows[day.Format("2006-01-02")], nil
}

type fakeDeliveredOrders struct {
	orders []*orderdomain.Order
}

func (f *fakeDeliveredOrders) CreateTx(ctx context.Context, tx *gorm.DB, order *orderdomain.Order) error {
	return nil
}

func (f *fakeDeliveredOrders) SaveTx(ctx context.Context, tx *gorm.DB, order *orderdomain.Order) error {
	return nil
}

func (f *fakeDeliveredOrders) Get(ctx context.Context, orderID uint) (*orderdomain.Order, error) {
	return nil, orderdomain.ErrNotFound
}

func (f *fakeDeliveredOrders) ListByCustomer(ctx context.Context, customerID uint, status orderdomain.OrderStatus, limit, offset int) ([]*orderdomain.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeDeliveredOrders) ListBySeller(ctx context.Context, sellerID uint, limit, offset int) ([]*orderdomain.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeDeliveredOrders) ListAll(ctx context.Context, status orderdomain.OrderStatus, limit, offset int) ([]*orderdomain.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeDeliveredOrders) ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]*orderdomain.Order, error) {
	var out []*orderdomain.Order
	for _, o := range f.orders {
		if o.DeliveredAt != nil && !o.DeliveredAt.Before(from) && o.DeliveredAt.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func deliveredOrder(t *testing.T, id uint, deliveredAt time.Time, lines ...orderdomain.OrderLine) *orderdomain.Order {
	t.Helper()
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	order := &orderdomain.Order{
		Status:        orderdomain.OrderStatusDelivered,
		PaymentStatus: orderdomain.PaymentStatusPaid,
		TotalAmount:   total,
		DeliveredAt:   &deliveredAt,
		Lines:         lines,
	}
	order.ID = id
	return order
}

var staff = userdomain.Actor{UserID: 1, Role: userdomain.RoleAdmin}

func TestRecompute(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	inDay := day.Add(10 * time.Hour)

	orders := &fakeDeliveredOrders{orders: []*orderdomain.Order{
		deliveredOrder(t, 1, inDay,
			orderdomain.OrderLine{SellerID: 100, Quantity: 2, Subtotal: money(t, "39.80")},
			orderdomain.OrderLine{SellerID: 200, Quantity: 1, Subtotal: money(t, "12.50")},
		),
		deliveredOrder(t, 2, inDay.Add(time.Hour),
			orderdomain.OrderLine{SellerID: 100, Quantity: 1, Subtotal: money(t, "19.90")},
		),
		// 次日送达，不计入
		deliveredOrder(t, 3, day.Add(30*time.Hour),
			orderdomain.OrderLine{SellerID: 100, Quantity: 5, Subtotal: money(t, "99.50")},
		),
	}}

	repo := newFakeRevenueRepo()
	svc := NewRevenueService(repo, orders)

	if err := svc.Recompute(context.Background(), staff, day); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	rows, err := svc.DayRevenue(context.Background(), staff, day)
	if err != nil {
		t.Fatalf("day revenue failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 sellers", len(rows))
	}

	bySeller := make(map[uint]*domain.DailyRevenue)
	for _, r := range rows {
		bySeller[r.SellerID] = r
	}

	s100 := bySeller[100]
	if s100 == nil {
		t.Fatal("seller 100 missing")
	}
	if s100.OrderCount != 2 || s100.UnitsSold != 3 {
		t.Errorf("seller 100: orders=%d units=%d, want 2/3", s100.OrderCount, s100.UnitsSold)
	}
	if !s100.GrossAmount.Equal(money(t, "59.70")) {
		t.Errorf("seller 100 gross = %s, want 59.70", s100.GrossAmount)
	}

	s200 := bySeller[200]
	if s200 == nil || s200.OrderCount != 1 || !s200.GrossAmount.Equal(money(t, "12.50")) {
		t.Errorf("seller 200 aggregate wrong: %+v", s200)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	orders := &fakeDeliveredOrders{orders: []*orderdomain.Order{
		deliveredOrder(t, 1, day.Add(time.Hour),
			orderdomain.OrderLine{SellerID: 100, Quantity: 1, Subtotal: money(t, "19.90")},
		),
	}}
	repo := newFakeRevenueRepo()
	svc := NewRevenueService(repo, orders)

	for i := 0; i < 3; i++ {
		if err := svc.Recompute(context.Background(), staff, day); err != nil {
			t.Fatalf("recompute #%d failed: %v", i, err)
		}
	}
	rows, _ := svc.DayRevenue(context.Background(), staff, day)
	if len(rows) != 1 {
		t.Errorf("rows = %d after repeated recompute, want 1", len(rows))
	}
}

func TestRevenueAuthorization(t *testing.T) {
	repo := newFakeRevenueRepo()
	svc := NewRevenueService(repo, &fakeDeliveredOrders{})
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	buyer := userdomain.Actor{UserID: 7, Role: userdomain.RoleCustomer}
	if err := svc.Recompute(context.Background(), buyer, day); !errors.Is(err, orderdomain.ErrForbidden) {
		t.Errorf("recompute by customer: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.DayRevenue(context.Background(), buyer, day); !errors.Is(err, orderdomain.ErrForbidden) {
		t.Errorf("day revenue by customer: err = %v, want ErrForbidden", err)
	}

	// 卖家查询强制收敛到自己的 ID
	repo.rows["2026-08-28"] = []*domain.DailyRevenue{
		{SellerID: 100, Day: day, GrossAmount: decimal.Zero},
		{SellerID: 200, Day: day, GrossAmount: decimal.Zero},
	}
	vendor := userdomain.Actor{UserID: 100, Role: userdomain.RoleSeller}
	rows, err := svc.SellerRevenue(context.Background(), vendor, 200, day, day)
	if err != nil {
		t.Fatalf("seller revenue failed: %v", err)
	}
	for _, r := range rows {
		if r.SellerID != 100 {
			t.Errorf("seller saw foreign revenue row: seller_id=%d", r.SellerID)
		}
	}
}
