// Package http 购物车服务接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bookstore/internal/cart/application"
	"github.com/wyfcoding/bookstore/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/response"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

type Handler struct {
	service *application.CartService
}

func NewHandler(service *application.CartService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/cart")
	{
		g.GET("", h.GetCart)
		g.POST("/items", h.AddItem)
		g.PUT("/items/:id", h.SetQuantity)
		g.DELETE("/items/:id", h.RemoveItem)
		g.DELETE("", h.Clear)
	}
}

type AddItemReq struct {
	BookID   uint `json:"book_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,min=1"`
}

func (h *Handler) AddItem(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	var req AddItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Add(c.Request.Context(), actor, req.BookID, req.Quantity); err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, nil)
}

type SetQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) SetQuantity(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid line id")
		return
	}

	var req SetQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SetQuantity(c.Request.Context(), actor, id, req.Quantity); err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) RemoveItem(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid line id")
		return
	}

	if err := h.service.Remove(c.Request.Context(), actor, id); err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) Clear(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	if err := h.service.Clear(c.Request.Context(), actor); err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) GetCart(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	snapshot, err := h.service.GetSnapshot(c.Request.Context(), actor)
	if err != nil {
		writeCartError(c, err)
		return
	}
	response.Success(c, snapshot)
}

func writeCartError(c *gin.Context, err error) {
	var insufficient *catalogdomain.InsufficientStockError
	var unavailable *catalogdomain.UnavailableError

	switch {
	case errors.Is(err, domain.ErrLineNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "cart line not found")
	case errors.Is(err, domain.ErrInvalidQuantity):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid quantity")
	case errors.Is(err, catalogdomain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "book not found")
	case errors.As(err, &insufficient):
		response.ErrorWithStatus(c, http.StatusConflict, insufficient.Error())
	case errors.As(err, &unavailable):
		response.ErrorWithStatus(c, http.StatusConflict, unavailable.Error())
	default:
		response.Error(c, "internal error")
	}
}
