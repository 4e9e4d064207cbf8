// Package http 订单服务接口
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	"github.com/wyfcoding/bookstore/internal/order/application"
	"github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/response"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

// PaymentRefResolver 将顾客的储蓄卡解析为记录在订单上的支付引用
type PaymentRefResolver interface {
	PaymentRef(ctx context.Context, actor userdomain.Actor, cardID uint) (string, error)
}

type Handler struct {
	service *application.OrderService
	cards   PaymentRefResolver
}

func NewHandler(service *application.OrderService, cards PaymentRefResolver) *Handler {
	return &Handler{service: service, cards: cards}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/orders")
	{
		g.POST("/checkout", h.Checkout)
		g.GET("", h.ListMyOrders)
		g.GET("/:id", h.GetOrder)
		g.POST("/:id/cancel", h.Cancel)
		g.POST("/:id/reorder", h.Reorder)
		g.PUT("/:id/status", h.UpdateStatus)
	}
	mgmt := r.Group("/manage/orders")
	{
		mgmt.GET("", h.ListAllOrders)
		mgmt.GET("/seller", h.ListSellerOrders)
	}
}

type CheckoutReq struct {
	ShippingName       string `json:"shipping_name"`
	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	ShippingPhone      string `json:"shipping_phone"`
	SavedCardID        uint   `json:"saved_card_id"`
}

func (h *Handler) Checkout(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	var req CheckoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	var paymentRef string
	if req.SavedCardID != 0 {
		ref, err := h.cards.PaymentRef(c.Request.Context(), actor, req.SavedCardID)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid saved card")
			return
		}
		paymentRef = ref
	}

	order, err := h.service.Checkout(c.Request.Context(), actor, application.CheckoutCommand{
		ShippingName:       req.ShippingName,
		ShippingAddress:    req.ShippingAddress,
		ShippingCity:       req.ShippingCity,
		ShippingPostalCode: req.ShippingPostalCode,
		ShippingPhone:      req.ShippingPhone,
		PaymentRef:         paymentRef,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}

	response.Success(c, order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	response.Success(c, order)
}

func (h *Handler) ListMyOrders(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	status := domain.OrderStatus(c.Query("status"))
	page, pageSize := utils.ParsePagination(c)
	orders, total, err := h.service.ListMyOrders(c.Request.Context(), actor, status, page, pageSize)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	response.Success(c, gin.H{"orders": orders, "total": total})
}

func (h *Handler) ListSellerOrders(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	page, pageSize := utils.ParsePagination(c)
	orders, total, err := h.service.ListSellerOrders(c.Request.Context(), actor, page, pageSize)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	response.Success(c, gin.H{"orders": orders, "total": total})
}

func (h *Handler) ListAllOrders(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	status := domain.OrderStatus(c.Query("status"))
	page, pageSize := utils.ParsePagination(c)
	orders, total, err := h.service.ListAllOrders(c.Request.Context(), actor, status, page, pageSize)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	response.Success(c, gin.H{"orders": orders, "total": total})
}

type CancelReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order id")
		return
	}

	var req CancelReq
	_ = c.ShouldBindJSON(&req)

	if err := h.service.Cancel(c.Request.Context(), actor, id, req.Reason); err != nil {
		writeOrderError(c, err)
		return
	}
	response.Success(c, nil)
}

type UpdateStatusReq struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	err = h.service.UpdateStatus(c.Request.Context(), actor, id, domain.OrderStatus(req.Status), req.TrackingNumber)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) Reorder(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.service.Reorder(c.Request.Context(), actor, id); err != nil {
		writeOrderError(c, err)
		return
	}
	response.Success(c, nil)
}

// writeOrderError 领域错误到 HTTP 状态码的映射
func writeOrderError(c *gin.Context, err error) {
	var transition *domain.InvalidTransitionError
	var insufficient *catalogdomain.InsufficientStockError
	var unavailable *catalogdomain.UnavailableError
	var items *domain.ItemsUnavailableError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrForbidden):
		response.ErrorWithStatus(c, http.StatusForbidden, "operation not allowed")
	case errors.Is(err, domain.ErrEmptyCart):
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, "cart is empty")
	case errors.As(err, &transition):
		response.ErrorWithStatus(c, http.StatusConflict, transition.Error())
	case errors.As(err, &insufficient):
		response.ErrorWithStatus(c, http.StatusConflict, insufficient.Error())
	case errors.As(err, &unavailable):
		response.ErrorWithStatus(c, http.StatusConflict, unavailable.Error())
	case errors.As(err, &items):
		response.ErrorWithStatus(c, http.StatusConflict, items.Error())
	default:
		response.Error(c, "internal error")
	}
}
