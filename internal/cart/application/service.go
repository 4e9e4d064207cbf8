// Package application 购物车服务的应用层
package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
)

// CartService 购物车服务
// 所有变更操作都以调用者为作用域，跨顾客访问一律失败
type CartService struct {
	repo   domain.CartRepository
	books  catalogdomain.BookRepository
	ledger catalogdomain.InventoryLedger
}

// NewCartService 构造函数
func NewCartService(repo domain.CartRepository, books catalogdomain.BookRepository, ledger catalogdomain.InventoryLedger) *CartService {
	return &CartService{repo: repo, books: books, ledger: ledger}
}

// Add 加入购物车；同一本书重复加购时在原行累加数量
func (s *CartService) Add(ctx context.Context, actor userdomain.Actor, bookID uint, quantity int) error {
	if err := s.validateAddition(ctx, bookID, quantity); err != nil {
		return err
	}

	line := &domain.CartLine{
		CustomerID: actor.UserID,
		BookID:     bookID,
		Quantity:   quantity,
	}
	if err := s.repo.Save(ctx, line); err != nil {
		return err
	}

	logger.Info(ctx, "cart line added", "customer_id", actor.UserID, "book_id", bookID, "quantity", quantity)
	return nil
}

// Addition 一次批量加购中的一项
type Addition struct {
	BookID   uint
	Quantity int
}

// AddMany 批量加购，全部成功或等价于没发生。
// 先整体校验再逐项落库；中途落库失败时撤销已写入的累加，
// 购物车不会停在半填状态
func (s *CartService) AddMany(ctx context.Context, actor userdomain.Actor, items []Addition) error {
	for _, item := range items {
		if err := s.validateAddition(ctx, item.BookID, item.Quantity); err != nil {
			return err
		}
	}

	for i, item := range items {
		line := &domain.CartLine{
			CustomerID: actor.UserID,
			BookID:     item.BookID,
			Quantity:   item.Quantity,
		}
		if err := s.repo.Save(ctx, line); err != nil {
			s.rollbackAdditions(ctx, actor, items[:i])
			return err
		}
	}

	logger.Info(ctx, "cart lines added", "customer_id", actor.UserID, "items", len(items))
	return nil
}

// validateAddition 校验待加购项：数量合法、书目在售、库存可满足
func (s *CartService) validateAddition(ctx context.Context, bookID uint, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		if errors.Is(err, catalogdomain.ErrNotFound) {
			return &catalogdomain.UnavailableError{BookID: bookID}
		}
		return err
	}
	if !book.Available {
		return &catalogdomain.UnavailableError{BookID: bookID, Title: book.Title}
	}

	ok, err := s.ledger.CheckAvailable(ctx, bookID, quantity)
	if err != nil {
		return err
	}
	if !ok {
		return &catalogdomain.InsufficientStockError{BookID: bookID, Title: book.Title}
	}
	return nil
}

// rollbackAdditions 撤销已累加的行。加购前行上已有数量时回退差值，
// 否则删除整行，保持既有内容不受影响
func (s *CartService) rollbackAdditions(ctx context.Context, actor userdomain.Actor, added []Addition) {
	for _, item := range added {
		line, err := s.repo.GetLineByBook(ctx, actor.UserID, item.BookID)
		if err != nil {
			logger.Error(ctx, "cart rollback lookup failed", "customer_id", actor.UserID, "book_id", item.BookID, "error", err)
			continue
		}
		if line.Quantity > item.Quantity {
			err = s.repo.SetQuantity(ctx, actor.UserID, line.ID, line.Quantity-item.Quantity)
		} else {
			err = s.repo.Delete(ctx, actor.UserID, line.ID)
		}
		if err != nil {
			logger.Error(ctx, "cart rollback failed", "customer_id", actor.UserID, "book_id", item.BookID, "error", err)
		}
	}
}

// SetQuantity 修改行数量；数量 <= 0 等价于删除该行
func (s *CartService) SetQuantity(ctx context.Context, actor userdomain.Actor, lineID uint, quantity int) error {
	line, err := s.repo.GetLine(ctx, actor.UserID, lineID)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return s.repo.Delete(ctx, actor.UserID, lineID)
	}

	ok, err := s.ledger.CheckAvailable(ctx, line.BookID, quantity)
	if err != nil {
		return err
	}
	if !ok {
		return &catalogdomain.InsufficientStockError{BookID: line.BookID}
	}

	return s.repo.SetQuantity(ctx, actor.UserID, lineID, quantity)
}

// Remove 删除购物车行
func (s *CartService) Remove(ctx context.Context, actor userdomain.Actor, lineID uint) error {
	return s.repo.Delete(ctx, actor.UserID, lineID)
}

// Clear 清空购物车
func (s *CartService) Clear(ctx context.Context, actor userdomain.Actor) error {
	return s.repo.Clear(ctx, actor.UserID)
}

// SnapshotLine 购物车快照行
type SnapshotLine struct {
	LineID    uint            `json:"line_id"`
	BookID    uint            `json:"book_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Available bool            `json:"available"`
	AddedAt   time.Time       `json:"added_at"`
}

// Snapshot 购物车快照
// 小计按图书当前售价计算，区别于结算后冻结的订单行价格
type Snapshot struct {
	Lines       []SnapshotLine  `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// GetSnapshot 读取购物车快照
func (s *CartService) GetSnapshot(ctx context.Context, actor userdomain.Actor) (*Snapshot, error) {
	lines, err := s.repo.ListLines(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Lines:       make([]SnapshotLine, 0, len(lines)),
		TotalAmount: decimal.Zero,
	}

	if len(lines) == 0 {
		return snapshot, nil
	}

	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.BookID)
	}
	books, err := s.books.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*catalogdomain.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	for _, line := range lines {
		book, ok := byID[line.BookID]
		if !ok {
			// 书目已被移除，跳过但保留行，待顾客自行清理
			continue
		}
		subtotal := book.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		snapshot.Lines = append(snapshot.Lines, SnapshotLine{
			LineID:    line.ID,
			BookID:    line.BookID,
			Title:     book.Title,
			Quantity:  line.Quantity,
			UnitPrice: book.Price,
			Subtotal:  subtotal,
			Available: book.CanFulfill(line.Quantity),
			AddedAt:   line.CreatedAt,
		})
		snapshot.TotalAmount = snapshot.TotalAmount.Add(subtotal)
	}

	return snapshot, nil
}
