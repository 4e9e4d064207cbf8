// Package mysql 提供图书仓储与库存账本的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"gorm.io/gorm"
)

type bookRepositoryImpl struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储实例
func NewBookRepository(db *gorm.DB) domain.BookRepository {
	return &bookRepositoryImpl{db: db}
}

// Save 实现 domain.BookRepository.Save
func (r *bookRepositoryImpl) Save(ctx context.Context, book *domain.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return domain.ErrDuplicateISBN
		}
		logger.Error(ctx, "book_repository.save failed", "isbn", book.ISBN, "error", err)
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

// Get 实现 domain.BookRepository.Get
func (r *bookRepositoryImpl) Get(ctx context.Context, id uint) (*domain.Book, error) {
	var book domain.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		logger.Error(ctx, "book_repository.get failed", "book_id", id, "error", err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// GetMany 实现 domain.BookRepository.GetMany
func (r *bookRepositoryImpl) GetMany(ctx context.Context, ids []uint) ([]*domain.Book, error) {
	var books []*domain.Book
	if len(ids) == 0 {
		return books, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&books).Error; err != nil {
		logger.Error(ctx, "book_repository.get_many failed", "error", err)
		return nil, fmt.Errorf("failed to get books: %w", err)
	}
	return books, nil
}

// Update 实现 domain.BookRepository.Update
func (r *bookRepositoryImpl) Update(ctx context.Context, book *domain.Book) error {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		logger.Error(ctx, "book_repository.update failed", "book_id", book.ID, "error", err)
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

// List 实现 domain.BookRepository.List
func (r *bookRepositoryImpl) List(ctx context.Context, query domain.BookQuery) ([]*domain.Book, int64, error) {
	var books []*domain.Book
	var total int64

	db := r.db.WithContext(ctx).Model(&domain.Book{})
	if query.Keyword != "" {
		like := "%" + query.Keyword + "%"
		db = db.Where("title LIKE ? OR author LIKE ?", like, like)
	}
	if query.Category != "" {
		db = db.Where("category = ?", query.Category)
	}
	if query.SellerID != 0 {
		db = db.Where("seller_id = ?", query.SellerID)
	}
	if query.OnlyAvailable {
		db = db.Where("available = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc").Limit(query.Limit).Offset(query.Offset).Find(&books).Error; err != nil {
		logger.Error(ctx, "book_repository.list failed", "error", err)
		return nil, 0, fmt.Errorf("failed to list books: %w", err)
	}
	return books, total, nil
}
