package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bookstore/internal/user/application"
	"github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/response"
)

const actorContextKey = "auth.actor"

// AuthMiddleware 从会话 cookie 解析调用身份并注入请求上下文。
// required 为 true 时，缺失或过期的会话直接拒绝
func AuthMiddleware(users *application.UserService, cookieName string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			if required {
				response.ErrorWithStatus(c, http.StatusUnauthorized, "login required")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		actor, err := users.Resolve(c.Request.Context(), token)
		if err != nil {
			logger.Error(c.Request.Context(), "session resolve failed", "error", err)
			response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error")
			c.Abort()
			return
		}
		if actor == nil {
			if required {
				response.ErrorWithStatus(c, http.StatusUnauthorized, "session expired")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(actorContextKey, *actor)
		c.Next()
	}
}

// CurrentActor 取出当前请求的调用身份
func CurrentActor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}
