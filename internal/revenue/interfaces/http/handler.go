// Package http 营收服务接口
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/wyfcoding/bookstore/internal/order/domain"
	"github.com/wyfcoding/bookstore/internal/revenue/application"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/response"
)

const dayFormat = "2006-01-02"

type Handler struct {
	service *application.RevenueService
}

func NewHandler(service *application.RevenueService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/revenue")
	{
		g.GET("/seller", h.SellerRevenue)
		g.GET("/day", h.DayRevenue)
		g.POST("/recompute", h.Recompute)
	}
}

func (h *Handler) Recompute(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	day, err := time.Parse(dayFormat, c.Query("day"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
		return
	}

	if err := h.service.Recompute(c.Request.Context(), actor, day); err != nil {
		writeRevenueError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) SellerRevenue(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	from, err := time.Parse(dayFormat, c.Query("from"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid from, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dayFormat, c.Query("to"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid to, expected YYYY-MM-DD")
		return
	}
	sellerID, _ := strconv.ParseUint(c.Query("seller_id"), 10, 64)

	rows, err := h.service.SellerRevenue(c.Request.Context(), actor, uint(sellerID), from, to)
	if err != nil {
		writeRevenueError(c, err)
		return
	}
	response.Success(c, gin.H{"revenue": rows})
}

func (h *Handler) DayRevenue(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	day, err := time.Parse(dayFormat, c.Query("day"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
		return
	}

	rows, err := h.service.DayRevenue(c.Request.Context(), actor, day)
	if err != nil {
		writeRevenueError(c, err)
		return
	}
	response.Success(c, gin.H{"revenue": rows})
}

func writeRevenueError(c *gin.Context, err error) {
	if errors.Is(err, orderdomain.ErrForbidden) {
		response.ErrorWithStatus(c, http.StatusForbidden, "operation not allowed")
		return
	}
	response.Error(c, "internal error")
}
