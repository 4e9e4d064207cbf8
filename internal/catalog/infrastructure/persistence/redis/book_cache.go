// Package redis 提供图书详情的 Redis 读穿缓存。
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/bookstore/internal/catalog/application"
	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/pkg/cache"
	"github.com/wyfcoding/bookstore/pkg/logger"
)

const bookCacheTTL = 5 * time.Minute

type bookCacheImpl struct {
	cache *cache.RedisCache
}

// NewBookCache 创建图书缓存实例
func NewBookCache(c *cache.RedisCache) application.BookCache {
	return &bookCacheImpl{cache: c}
}

func (b *bookCacheImpl) key(bookID uint) string {
	return fmt.Sprintf("bookstore:book:%d", bookID)
}

// Get 读取缓存；缓存故障视为未命中
func (b *bookCacheImpl) Get(ctx context.Context, bookID uint) (*domain.Book, bool) {
	var book domain.Book
	if err := b.cache.GetJSON(ctx, b.key(bookID), &book); err != nil {
		logger.Warn(ctx, "book cache read failed", "book_id", bookID, "error", err)
		return nil, false
	}
	if book.ID == 0 {
		return nil, false
	}
	return &book, true
}

// Set 写入缓存；失败仅记录日志
func (b *bookCacheImpl) Set(ctx context.Context, book *domain.Book) {
	if err := b.cache.SetJSON(ctx, b.key(book.ID), book, bookCacheTTL); err != nil {
		logger.Warn(ctx, "book cache write failed", "book_id", book.ID, "error", err)
	}
}

// Invalidate 删除缓存条目
func (b *bookCacheImpl) Invalidate(ctx context.Context, bookID uint) {
	if err := b.cache.Delete(ctx, b.key(bookID)); err != nil {
		logger.Warn(ctx, "book cache invalidate failed", "book_id", bookID, "error", err)
	}
}
