package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/wyfcoding/bookstore/internal/payment/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
)

type fakeCardRepo struct {
	cards  map[uint]*domain.SavedCard
	nextID uint
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: make(map[uint]*domain.SavedCard), nextID: 1}
}

func (r *fakeCardRepo) Save(ctx context.Context, card *domain.SavedCard) error {
	if card.ID == 0 {
		card.ID = r.nextID
		r.nextID++
	}
	cp := *card
	r.cards[card.ID] = &cp
	return nil
}

func (r *fakeCardRepo) Get(ctx context.Context, customerID, id uint) (*domain.SavedCard, error) {
	card, ok := r.cards[id]
	if !ok || card.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	cp := *card
	return &cp, nil
}

func (r *fakeCardRepo) ListByCustomer(ctx context.Context, customerID uint) ([]*domain.SavedCard, error) {
	var out []*domain.SavedCard
	for _, card := range r.cards {
		if card.CustomerID == customerID {
			cp := *card
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeCardRepo) Delete(ctx context.Context, customerID, id uint) error {
	card, ok := r.cards[id]
	if !ok || card.CustomerID != customerID {
		return domain.ErrNotFound
	}
	delete(r.cards, id)
	return nil
}

func (r *fakeCardRepo) ClearDefault(ctx context.Context, customerID uint) error {
	for _, card := range r.cards {
		if card.CustomerID == customerID {
			card.IsDefault = false
		}
	}
	return nil
}

func (r *fakeCardRepo) SetDefault(ctx context.Context, customerID, id uint) error {
	card, ok := r.cards[id]
	if !ok || card.CustomerID != customerID {
		return domain.ErrNotFound
	}
	card.IsDefault = true
	return nil
}

var buyer = userdomain.Actor{UserID: 1, Role: userdomain.RoleCustomer}

func futureYear() int { return time.Now().Year() + 2 }

func TestAddCard(t *testing.T) {
	repo := newFakeCardRepo()
	svc := NewCardService(repo)
	ctx := context.Background()

	t.Run("masks number on save", func(t *testing.T) {
		card, err := svc.AddCard(ctx, buyer, AddCardCommand{
			Number:      "4242424242424242",
			Brand:       "VISA",
			HolderName:  "ALICE LIU",
			ExpiryMonth: 12,
			ExpiryYear:  futureYear(),
		})
		if err != nil {
			t.Fatalf("add card failed: %v", err)
		}
		if strings.Contains(card.MaskedNumber, "424242424242") {
			t.Errorf("masked number leaks PAN: %s", card.MaskedNumber)
		}
		if !strings.HasSuffix(card.MaskedNumber, "4242") {
			t.Errorf("masked number = %s, want last four digits kept", card.MaskedNumber)
		}
		stored := repo.cards[card.ID]
		if stored.MaskedNumber != card.MaskedNumber {
			t.Error("stored card differs from returned card")
		}
	})

	t.Run("rejects expired card", func(t *testing.T) {
		_, err := svc.AddCard(ctx, buyer, AddCardCommand{
			Number:      "4242424242424242",
			HolderName:  "ALICE LIU",
			ExpiryMonth: 1,
			ExpiryYear:  time.Now().Year() - 1,
		})
		if !errors.Is(err, domain.ErrInvalidExpiry) {
			t.Errorf("err = %v, want ErrInvalidExpiry", err)
		}
	})

	t.Run("rejects invalid month", func(t *testing.T) {
		_, err := svc.AddCard(ctx, buyer, AddCardCommand{
			Number:      "4242424242424242",
			HolderName:  "ALICE LIU",
			ExpiryMonth: 13,
			ExpiryYear:  futureYear(),
		})
		if !errors.Is(err, domain.ErrInvalidExpiry) {
			t.Errorf("err = %v, want ErrInvalidExpiry", err)
		}
	})

	t.Run("new default unsets previous default", func(t *testing.T) {
		first, err := svc.AddCard(ctx, buyer, AddCardCommand{
			Number: "4242424242424242", HolderName: "ALICE LIU",
			ExpiryMonth: 6, ExpiryYear: futureYear(), IsDefault: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		second, err := svc.AddCard(ctx, buyer, AddCardCommand{
			Number: "5555555555554444", HolderName: "ALICE LIU",
			ExpiryMonth: 6, ExpiryYear: futureYear(), IsDefault: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if repo.cards[first.ID].IsDefault {
			t.Error("previous default card still marked default")
		}
		if !repo.cards[second.ID].IsDefault {
			t.Error("new card not marked default")
		}
	})
}

func TestSetDefaultCard(t *testing.T) {
	repo := newFakeCardRepo()
	svc := NewCardService(repo)
	ctx := context.Background()

	a, _ := svc.AddCard(ctx, buyer, AddCardCommand{
		Number: "4242424242424242", HolderName: "ALICE LIU",
		ExpiryMonth: 6, ExpiryYear: futureYear(), IsDefault: true,
	})
	b, _ := svc.AddCard(ctx, buyer, AddCardCommand{
		Number: "5555555555554444", HolderName: "ALICE LIU",
		ExpiryMonth: 6, ExpiryYear: futureYear(),
	})

	if err := svc.SetDefaultCard(ctx, buyer, b.ID); err != nil {
		t.Fatalf("set default failed: %v", err)
	}
	if repo.cards[a.ID].IsDefault || !repo.cards[b.ID].IsDefault {
		t.Error("default flag not moved to new card")
	}

	stranger := userdomain.Actor{UserID: 99, Role: userdomain.RoleCustomer}
	if err := svc.SetDefaultCard(ctx, stranger, b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign card set default: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCard(t *testing.T) {
	repo := newFakeCardRepo()
	svc := NewCardService(repo)
	ctx := context.Background()

	card, _ := svc.AddCard(ctx, buyer, AddCardCommand{
		Number: "4242424242424242", HolderName: "ALICE LIU",
		ExpiryMonth: 6, ExpiryYear: futureYear(),
	})

	stranger := userdomain.Actor{UserID: 99, Role: userdomain.RoleCustomer}
	if err := svc.DeleteCard(ctx, stranger, card.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign delete: err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteCard(ctx, buyer, card.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := repo.cards[card.ID]; ok {
		t.Error("card still present after delete")
	}
}

func TestPaymentRef(t *testing.T) {
	repo := newFakeCardRepo()
	svc := NewCardService(repo)
	ctx := context.Background()

	card, _ := svc.AddCard(ctx, buyer, AddCardCommand{
		Number: "4242424242424242", HolderName: "ALICE LIU",
		ExpiryMonth: 6, ExpiryYear: futureYear(),
	})

	ref, err := svc.PaymentRef(ctx, buyer, card.ID)
	if err != nil {
		t.Fatalf("payment ref failed: %v", err)
	}
	if !strings.HasPrefix(ref, "card:") || !strings.HasSuffix(ref, "4242") {
		t.Errorf("ref = %s, want opaque card reference with last four", ref)
	}
	if strings.Contains(ref, "424242424242") {
		t.Errorf("ref leaks PAN: %s", ref)
	}

	// 过期卡不能用于结算
	repo.cards[card.ID].ExpiryYear = time.Now().Year() - 1
	if _, err := svc.PaymentRef(ctx, buyer, card.ID); !errors.Is(err, domain.ErrInvalidExpiry) {
		t.Errorf("expired card ref: err = %v, want ErrInvalidExpiry", err)
	}

	if _, err := svc.PaymentRef(ctx, buyer, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing card ref: err = %v, want ErrNotFound", err)
	}
}
