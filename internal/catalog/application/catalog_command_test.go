package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
)

type fakeBookRepo struct {
	books  map[uint]*domain.Book
	nextID uint
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[uint]*domain.Book), nextID: 1}
}

func (r *fakeBookRepo) Save(ctx context.Context, book *domain.Book) error {
	for _, b := range r.books {
		if b.ISBN == book.ISBN {
			return domain.ErrDuplicateISBN
		}
	}
	book.ID = r.nextID
	r.nextID++
	r.books[book.ID] = book
	return nil
}

func (r *fakeBookRepo) Get(ctx context.Context, id uint) (*domain.Book, error) {
	book, ok := r.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *book
	return &cp, nil
}

func (r *fakeBookRepo) GetMany(ctx context.Context, ids []uint) ([]*domain.Book, error) {
	var out []*domain.Book
	for _, id := range ids {
		if b, ok := r.books[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookRepo) Update(ctx context.Context, book *domain.Book) error {
	if _, ok := r.books[book.ID]; !ok {
		return domain.ErrNotFound
	}
	r.books[book.ID] = book
	return nil
}

func (r *fakeBookRepo) List(ctx context.Context, query domain.BookQuery) ([]*domain.Book, int64, error) {
	var out []*domain.Book
	for _, b := range r.books {
		if query.OnlyAvailable && !b.Available {
			continue
		}
		out = append(out, b)
	}
	return out, int64(len(out)), nil
}

type fakeBookCache struct {
	invalidated []uint
}

func (c *fakeBookCache) Get(ctx context.Context, bookID uint) (*domain.Book, bool) {
	return nil, false
}

func (c *fakeBookCache) Set(ctx context.Context, book *domain.Book) {}

func (c *fakeBookCache) Invalidate(ctx context.Context, bookID uint) {
	c.invalidated = append(c.invalidated, bookID)
}

var (
	seller = userdomain.Actor{UserID: 100, Role: userdomain.RoleSeller}
	admin  = userdomain.Actor{UserID: 1, Role: userdomain.RoleAdmin}
	buyer  = userdomain.Actor{UserID: 7, Role: userdomain.RoleCustomer}
)

func price(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	p, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreateBook(t *testing.T) {
	t.Run("seller creates own book", func(t *testing.T) {
		repo := newFakeBookRepo()
		svc := NewCatalogCommandService(repo, &fakeBookCache{})

		id, err := svc.CreateBook(context.Background(), seller, CreateBookCommand{
			Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593",
			Price: price(t, "19.90"), Stock: 5,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		book := repo.books[id]
		if book.SellerID != seller.UserID {
			t.Errorf("seller_id = %d, want %d", book.SellerID, seller.UserID)
		}
		if !book.Available {
			t.Errorf("new book should be available")
		}
	})

	t.Run("customer cannot create", func(t *testing.T) {
		svc := NewCatalogCommandService(newFakeBookRepo(), &fakeBookCache{})
		_, err := svc.CreateBook(context.Background(), buyer, CreateBookCommand{
			Title: "Dune", ISBN: "x", Price: price(t, "1.00"), Stock: 1,
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		svc := NewCatalogCommandService(newFakeBookRepo(), &fakeBookCache{})
		_, err := svc.CreateBook(context.Background(), seller, CreateBookCommand{
			Title: "Dune", ISBN: "x", Price: decimal.Zero, Stock: 1,
		})
		if !errors.Is(err, domain.ErrInvalidPrice) {
			t.Errorf("err = %v, want ErrInvalidPrice", err)
		}
	})

	t.Run("rejects duplicate isbn", func(t *testing.T) {
		repo := newFakeBookRepo()
		svc := NewCatalogCommandService(repo, &fakeBookCache{})
		cmd := CreateBookCommand{Title: "Dune", ISBN: "9780441013593", Price: price(t, "19.90"), Stock: 1}
		if _, err := svc.CreateBook(context.Background(), seller, cmd); err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		if _, err := svc.CreateBook(context.Background(), seller, cmd); !errors.Is(err, domain.ErrDuplicateISBN) {
			t.Errorf("err = %v, want ErrDuplicateISBN", err)
		}
	})
}

func TestUpdateBook(t *testing.T) {
	seed := func(t *testing.T) (*CatalogCommandService, *fakeBookRepo, *fakeBookCache, uint) {
		t.Helper()
		repo := newFakeBookRepo()
		cache := &fakeBookCache{}
		svc := NewCatalogCommandService(repo, cache)
		id, err := svc.CreateBook(context.Background(), seller, CreateBookCommand{
			Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593",
			Price: price(t, "19.90"), Stock: 5,
		})
		if err != nil {
			t.Fatal(err)
		}
		return svc, repo, cache, id
	}

	t.Run("owner updates and cache invalidated", func(t *testing.T) {
		svc, repo, cache, id := seed(t)
		err := svc.UpdateBook(context.Background(), seller, UpdateBookCommand{
			BookID: id, Title: "Dune (reissue)", Author: "Frank Herbert",
			Price: price(t, "24.90"), Stock: 8,
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if repo.books[id].Title != "Dune (reissue)" {
			t.Errorf("title not updated")
		}
		if len(cache.invalidated) != 1 || cache.invalidated[0] != id {
			t.Errorf("cache not invalidated: %v", cache.invalidated)
		}
	})

	t.Run("other seller forbidden", func(t *testing.T) {
		svc, _, _, id := seed(t)
		rival := userdomain.Actor{UserID: 999, Role: userdomain.RoleSeller}
		err := svc.UpdateBook(context.Background(), rival, UpdateBookCommand{
			BookID: id, Title: "Hijacked", Price: price(t, "0.01"), Stock: 1,
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("staff may update any book", func(t *testing.T) {
		svc, repo, _, id := seed(t)
		err := svc.UpdateBook(context.Background(), admin, UpdateBookCommand{
			BookID: id, Title: "Dune", Author: "Frank Herbert",
			Price: price(t, "17.90"), Stock: 5,
		})
		if err != nil {
			t.Fatalf("staff update failed: %v", err)
		}
		if !repo.books[id].Price.Equal(price(t, "17.90")) {
			t.Errorf("price not updated")
		}
	})
}

func TestDeactivateActivateBook(t *testing.T) {
	repo := newFakeBookRepo()
	cache := &fakeBookCache{}
	svc := NewCatalogCommandService(repo, cache)
	id, err := svc.CreateBook(context.Background(), seller, CreateBookCommand{
		Title: "Dune", ISBN: "9780441013593", Price: price(t, "19.90"), Stock: 5,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeactivateBook(context.Background(), seller, id); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if repo.books[id].Available {
		t.Errorf("book still available after deactivate")
	}

	if err := svc.ActivateBook(context.Background(), seller, id); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if !repo.books[id].Available {
		t.Errorf("book not available after activate")
	}

	if err := svc.DeactivateBook(context.Background(), buyer, id); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("customer deactivate: err = %v, want ErrForbidden", err)
	}
}
