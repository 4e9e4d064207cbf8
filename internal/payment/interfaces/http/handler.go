// Package http 支付服务接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bookstore/internal/payment/application"
	"github.com/wyfcoding/bookstore/internal/payment/domain"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/response"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

type Handler struct {
	service *application.CardService
}

func NewHandler(service *application.CardService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/cards")
	{
		g.GET("", h.ListCards)
		g.POST("", h.AddCard)
		g.DELETE("/:id", h.DeleteCard)
		g.POST("/:id/default", h.SetDefault)
	}
}

type AddCardReq struct {
	Number      string `json:"number" binding:"required,min=12,max=19"`
	Brand       string `json:"brand"`
	HolderName  string `json:"holder_name" binding:"required"`
	ExpiryMonth int    `json:"expiry_month" binding:"required"`
	ExpiryYear  int    `json:"expiry_year" binding:"required"`
	IsDefault   bool   `json:"is_default"`
}

func (h *Handler) AddCard(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	var req AddCardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	card, err := h.service.AddCard(c.Request.Context(), actor, application.AddCardCommand{
		Number:      req.Number,
		Brand:       req.Brand,
		HolderName:  req.HolderName,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		writeCardError(c, err)
		return
	}
	response.Success(c, card)
}

func (h *Handler) ListCards(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	cards, err := h.service.ListCards(c.Request.Context(), actor)
	if err != nil {
		writeCardError(c, err)
		return
	}
	response.Success(c, gin.H{"cards": cards})
}

func (h *Handler) DeleteCard(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid card id")
		return
	}

	if err := h.service.DeleteCard(c.Request.Context(), actor, id); err != nil {
		writeCardError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) SetDefault(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid card id")
		return
	}

	if err := h.service.SetDefaultCard(c.Request.Context(), actor, id); err != nil {
		writeCardError(c, err)
		return
	}
	response.Success(c, nil)
}

func writeCardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "card not found")
	case errors.Is(err, domain.ErrInvalidExpiry):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid card expiry")
	default:
		response.Error(c, "internal error")
	}
}
