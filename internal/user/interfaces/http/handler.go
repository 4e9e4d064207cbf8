// Package http 用户服务接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bookstore/internal/user/application"
	"github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/response"
)

type Handler struct {
	service    *application.UserService
	cookieName string
	sessionTTL int
}

func NewHandler(service *application.UserService, cookieName string, sessionTTL int) *Handler {
	return &Handler{service: service, cookieName: cookieName, sessionTTL: sessionTTL}
}

// RegisterPublicRoutes 无需登录的路由
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	g := r.Group("/auth")
	{
		g.POST("/register", h.Register)
		g.POST("/login", h.Login)
		g.POST("/logout", h.Logout)
	}
}

// RegisterRoutes 需要登录的路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/users")
	{
		g.GET("/me", h.Profile)
		g.PUT("/me/address", h.UpdateAddress)
	}
}

type RegisterReq struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	// 后台角色不开放自助注册
	role := domain.Role(req.Role)
	if role == domain.RoleAdmin || role == domain.RoleEmployee {
		response.ErrorWithStatus(c, http.StatusForbidden, "role not allowed")
		return
	}

	user, err := h.service.Register(c.Request.Context(), application.RegisterCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeUserError(c, err)
		return
	}

	response.Success(c, gin.H{"user_id": user.ID, "username": user.Username, "role": user.Role})
}

type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeUserError(c, err)
		return
	}

	c.SetCookie(h.cookieName, token, h.sessionTTL, "/", "", false, true)
	response.Success(c, gin.H{"user_id": user.ID, "username": user.Username, "role": user.Role})
}

func (h *Handler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err == nil && token != "" {
		_ = h.service.Logout(c.Request.Context(), token)
	}
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	response.Success(c, nil)
}

func (h *Handler) Profile(c *gin.Context) {
	actor, ok := CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), actor)
	if err != nil {
		writeUserError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":     user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"role":        user.Role,
		"address":     user.Address,
		"city":        user.City,
		"postal_code": user.PostalCode,
		"phone":       user.Phone,
	})
}

type UpdateAddressReq struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	actor, ok := CurrentActor(c)
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
		return
	}

	var req UpdateAddressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.UpdateAddress(c.Request.Context(), actor, application.UpdateAddressCommand{
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Phone:      req.Phone,
	})
	if err != nil {
		writeUserError(c, err)
		return
	}
	response.Success(c, nil)
}

func writeUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicateUser):
		response.ErrorWithStatus(c, http.StatusConflict, "username or email already taken")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, domain.ErrInvalidRole):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid role")
	case errors.Is(err, domain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "user not found")
	default:
		response.Error(c, "internal error")
	}
}
