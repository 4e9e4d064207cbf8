// Package http 通知服务接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bookstore/internal/notification/application"
	"github.com/wyfcoding/bookstore/internal/notification/domain"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/response"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

type Handler struct {
	service *application.NotificationService
}

func NewHandler(service *application.NotificationService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/notifications")
	{
		g.GET("", h.List)
		g.GET("/unread_count", h.CountUnread)
		g.POST("/:id/read", h.MarkRead)
		g.POST("/read_all", h.MarkAllRead)
		g.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	unreadOnly := c.Query("unread_only") == "true"
	page, pageSize := utils.ParsePagination(c)

	list, total, err := h.service.List(c.Request.Context(), actor, unreadOnly, page, pageSize)
	if err != nil {
		response.Error(c, "internal error")
		return
	}
	response.Success(c, gin.H{"notifications": list, "total": total})
}

func (h *Handler) CountUnread(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	count, err := h.service.CountUnread(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, "internal error")
		return
	}
	response.Success(c, gin.H{"unread": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor, id); err != nil {
		writeNotificationError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), actor); err != nil {
		response.Error(c, "internal error")
		return
	}
	response.Success(c, nil)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := userhttp.CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	id, err := utils.ParseUintParam(c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		writeNotificationError(c, err)
		return
	}
	response.Success(c, nil)
}

func writeNotificationError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		response.ErrorWithStatus(c, http.StatusNotFound, "notification not found")
		return
	}
	response.Error(c, "internal error")
}
