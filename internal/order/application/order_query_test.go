package application

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
)

func placeOrder(t *testing.T) (*memStore, *fakeOrderRepo, *domain.Order) {
	t.Helper()
	store := newMemStore()
	store.addUser(1, "alice", "1 Elm St")
	store.addBook(10, "Dune", "19.90", 5, 100, true)
	store.addCartLine(1, 10, 1)
	svc, orders := newTestService(store)
	order, err := svc.Checkout(context.Background(), customer, CheckoutCommand{})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return store, orders, order
}

func TestGetOrderVisibility(t *testing.T) {
	_, orders, order := placeOrder(t)
	query := NewOrderQueryService(orders)
	ctx := context.Background()

	t.Run("owner sees own order", func(t *testing.T) {
		got, err := query.GetOrder(ctx, customer, order.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.OrderNumber != order.OrderNumber {
			t.Errorf("wrong order returned")
		}
	})

	t.Run("other customer gets not found", func(t *testing.T) {
		bob := userdomain.Actor{UserID: 2, Role: userdomain.RoleCustomer}
		if _, err := query.GetOrder(ctx, bob, order.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("seller with a line in the order sees it", func(t *testing.T) {
		vendor := userdomain.Actor{UserID: 100, Role: userdomain.RoleSeller}
		if _, err := query.GetOrder(ctx, vendor, order.ID); err != nil {
			t.Errorf("seller get failed: %v", err)
		}
	})

	t.Run("unrelated seller gets not found", func(t *testing.T) {
		other := userdomain.Actor{UserID: 999, Role: userdomain.RoleSeller}
		if _, err := query.GetOrder(ctx, other, order.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("staff sees everything", func(t *testing.T) {
		employee := userdomain.Actor{UserID: 3, Role: userdomain.RoleEmployee}
		if _, err := query.GetOrder(ctx, employee, order.ID); err != nil {
			t.Errorf("staff get failed: %v", err)
		}
	})
}

func TestListVisibility(t *testing.T) {
	_, orders, _ := placeOrder(t)
	query := NewOrderQueryService(orders)
	ctx := context.Background()

	t.Run("customer list scoped to self", func(t *testing.T) {
		got, total, err := query.ListMyOrders(ctx, customer, "", 1, 20)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 1 || len(got) != 1 {
			t.Errorf("total = %d, want 1", total)
		}
	})

	t.Run("customer without orders sees none", func(t *testing.T) {
		bob := userdomain.Actor{UserID: 2, Role: userdomain.RoleCustomer}
		_, total, err := query.ListMyOrders(ctx, bob, "", 1, 20)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 0 {
			t.Errorf("total = %d, want 0", total)
		}
	})

	t.Run("all-orders list is staff only", func(t *testing.T) {
		if _, _, err := query.ListAllOrders(ctx, customer, "", 1, 20); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
		admin := userdomain.Actor{UserID: 50, Role: userdomain.RoleAdmin}
		_, total, err := query.ListAllOrders(ctx, admin, "", 1, 20)
		if err != nil {
			t.Fatalf("staff list failed: %v", err)
		}
		if total != 1 {
			t.Errorf("total = %d, want 1", total)
		}
	})

	t.Run("seller list is for sellers and staff", func(t *testing.T) {
		if _, _, err := query.ListSellerOrders(ctx, customer, 1, 20); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
		vendor := userdomain.Actor{UserID: 100, Role: userdomain.RoleSeller}
		_, total, err := query.ListSellerOrders(ctx, vendor, 1, 20)
		if err != nil {
			t.Fatalf("seller list failed: %v", err)
		}
		if total != 1 {
			t.Errorf("total = %d, want 1", total)
		}
	})
}
