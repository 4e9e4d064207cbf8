package application

import (
	"context"

	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

// BookCache 图书详情缓存接口，由 Redis 实现
type BookCache interface {
	Get(ctx context.Context, bookID uint) (*domain.Book, bool)
	Set(ctx context.Context, book *domain.Book)
	Invalidate(ctx context.Context, bookID uint)
}

// CatalogQueryService 图书目录查询服务
type CatalogQueryService struct {
	repo  domain.BookRepository
	cache BookCache
}

// NewCatalogQueryService 创建图书目录查询服务实例
func NewCatalogQueryService(repo domain.BookRepository, cache BookCache) *CatalogQueryService {
	return &CatalogQueryService{repo: repo, cache: cache}
}

// GetBook 获取图书详情，优先走缓存
func (s *CatalogQueryService) GetBook(ctx context.Context, bookID uint) (*domain.Book, error) {
	if book, ok := s.cache.Get(ctx, bookID); ok {
		return book, nil
	}

	book, err := s.repo.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, book)
	return book, nil
}

// ListBooks 按条件分页列出图书
func (s *CatalogQueryService) ListBooks(ctx context.Context, query domain.BookQuery) ([]*domain.Book, int64, error) {
	query.Limit, query.Offset = utils.NormalizePage(query.Limit, query.Offset)
	return s.repo.List(ctx, query)
}
