// Package application 图书目录服务的应用层
package application

import (
	"context"

	"github.com/shopspring/decimal"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
)

// CreateBookCommand 创建图书命令
type CreateBookCommand struct {
	Title       string
	Author      string
	ISBN        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
}

// UpdateBookCommand 更新图书命令
type UpdateBookCommand struct {
	BookID      uint
	Title       string
	Author      string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
}

// CatalogCommandService 图书目录命令服务
type CatalogCommandService struct {
	repo  domain.BookRepository
	cache BookCache
}

// NewCatalogCommandService 创建图书目录命令服务实例
func NewCatalogCommandService(repo domain.BookRepository, cache BookCache) *CatalogCommandService {
	return &CatalogCommandService{repo: repo, cache: cache}
}

// CreateBook 处理创建图书，仅卖家和管理员可用
func (s *CatalogCommandService) CreateBook(ctx context.Context, actor userdomain.Actor, cmd CreateBookCommand) (uint, error) {
	if actor.Role != userdomain.RoleSeller && !actor.Role.IsStaff() {
		return 0, domain.ErrForbidden
	}
	if cmd.Price.IsNegative() || cmd.Price.IsZero() {
		return 0, domain.ErrInvalidPrice
	}
	if cmd.Stock < 0 {
		return 0, domain.ErrInvalidStock
	}

	book := &domain.Book{
		Title:       cmd.Title,
		Author:      cmd.Author,
		ISBN:        cmd.ISBN,
		Description: cmd.Description,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		Available:   true,
		SellerID:    actor.UserID,
		Category:    cmd.Category,
	}
	if err := s.repo.Save(ctx, book); err != nil {
		return 0, err
	}

	logger.Info(ctx, "book created", "book_id", book.ID, "seller_id", actor.UserID)
	return book.ID, nil
}

// UpdateBook 处理更新图书；卖家只能改自己的书，后台人员可改任意
func (s *CatalogCommandService) UpdateBook(ctx context.Context, actor userdomain.Actor, cmd UpdateBookCommand) error {
	book, err := s.repo.Get(ctx, cmd.BookID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, book); err != nil {
		return err
	}
	if cmd.Price.IsNegative() || cmd.Price.IsZero() {
		return domain.ErrInvalidPrice
	}
	if cmd.Stock < 0 {
		return domain.ErrInvalidStock
	}

	book.Title = cmd.Title
	book.Author = cmd.Author
	book.Description = cmd.Description
	book.Price = cmd.Price
	book.Stock = cmd.Stock
	book.Category = cmd.Category

	if err := s.repo.Update(ctx, book); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, book.ID)
	return nil
}

// DeactivateBook 下架图书。图书被订单行引用时不做物理删除，仅软下架。
func (s *CatalogCommandService) DeactivateBook(ctx context.Context, actor userdomain.Actor, bookID uint) error {
	book, err := s.repo.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, book); err != nil {
		return err
	}

	book.Available = false
	if err := s.repo.Update(ctx, book); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, book.ID)
	logger.Info(ctx, "book deactivated", "book_id", bookID)
	return nil
}

// ActivateBook 重新上架图书
func (s *CatalogCommandService) ActivateBook(ctx context.Context, actor userdomain.Actor, bookID uint) error {
	book, err := s.repo.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, book); err != nil {
		return err
	}

	book.Available = true
	if err := s.repo.Update(ctx, book); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, book.ID)
	return nil
}

func (s *CatalogCommandService) authorize(actor userdomain.Actor, book *domain.Book) error {
	switch actor.Role {
	case userdomain.RoleAdmin, userdomain.RoleEmployee:
		return nil
	case userdomain.RoleSeller:
		if book.SellerID != actor.UserID {
			return domain.ErrForbidden
		}
		return nil
	default:
		return domain.ErrForbidden
	}
}
