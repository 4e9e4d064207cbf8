// Package http 图书目录服务接口
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/bookstore/internal/catalog/application"
	"github.com/wyfcoding/bookstore/internal/catalog/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/response"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

type Handler struct {
	command *application.CatalogCommandService
	query   *application.CatalogQueryService
}

func NewHandler(command *application.CatalogCommandService, query *application.CatalogQueryService) *Handler {
	return &Handler{command: command, query: query}
}

// RegisterPublicRoutes 浏览目录无需登录
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	g := r.Group("/books")
	{
		g.GET("", h.ListBooks)
		g.GET("/:id", h.GetBook)
	}
}

// RegisterRoutes 目录维护需要登录
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/books")
	{
		g.POST("", h.CreateBook)
		g.PUT("/:id", h.UpdateBook)
		g.POST("/:id/deactivate", h.DeactivateBook)
		g.POST("/:id/activate", h.ActivateBook)
	}
}

type CreateBookReq struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	ISBN        string `json:"isbn" binding:"required"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
}

func (h *Handler) CreateBook(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	var req CreateBookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price")
		return
	}

	id, err := h.command.CreateBook(c.Request.Context(), actor, application.CreateBookCommand{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		writeCatalogError(c, err)
		return
	}

	response.Success(c, gin.H{"book_id": id})
}

type UpdateBookReq struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	Description string `json:"description"`
	Price       string `json:"price" binding:"required"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
}

func (h *Handler) UpdateBook(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid book id")
		return
	}

	var req UpdateBookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price")
		return
	}

	err = h.command.UpdateBook(c.Request.Context(), actor, application.UpdateBookCommand{
		BookID:      id,
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) DeactivateBook(c *gin.Context) {
	h.toggleAvailability(c, h.command.DeactivateBook)
}

func (h *Handler) ActivateBook(c *gin.Context) {
	h.toggleAvailability(c, h.command.ActivateBook)
}

func (h *Handler) toggleAvailability(c *gin.Context, op func(context.Context, userdomain.Actor, uint) error) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := op(c.Request.Context(), actor, id); err != nil {
		writeCatalogError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) GetBook(c *gin.Context) {
	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := h.query.GetBook(c.Request.Context(), id)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	response.Success(c, book)
}

func (h *Handler) ListBooks(c *gin.Context) {
	page, pageSize := utils.ParsePagination(c)
	sellerID, _ := strconv.ParseUint(c.Query("seller_id"), 10, 64)

	books, total, err := h.query.ListBooks(c.Request.Context(), domain.BookQuery{
		Keyword:       c.Query("keyword"),
		Category:      c.Query("category"),
		SellerID:      uint(sellerID),
		OnlyAvailable: c.DefaultQuery("only_available", "true") == "true",
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	})
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	response.Success(c, gin.H{"books": books, "total": total})
}

func writeCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "book not found")
	case errors.Is(err, domain.ErrForbidden):
		response.ErrorWithStatus(c, http.StatusForbidden, "operation not allowed")
	case errors.Is(err, domain.ErrDuplicateISBN):
		response.ErrorWithStatus(c, http.StatusConflict, "isbn already exists")
	case errors.Is(err, domain.ErrInvalidPrice), errors.Is(err, domain.ErrInvalidStock):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, "internal error")
	}
}
