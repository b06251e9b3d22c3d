package middleware

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"
	"careiq_backend/pkg/logger"
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IdentityVerifier interface {
	Verify(authorization string) (*service.Identity, error)
}

type UserProvisioner interface {
	EnsureUser(ctx context.Context, id *service.Identity) (*model.User, error)
}

// AuthMiddleware 校验 Bearer 令牌并把对应的员工账号放入上下文
func AuthMiddleware(identity IdentityVerifier, users UserProvisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		// 音频下载等场景只能通过查询参数携带令牌
		if authHeader == "" {
			if token := c.Query("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}

		id, err := identity.Verify(authHeader)
		if err != nil {
			logger.Log.Debug("Token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		user, err := users.EnsureUser(c.Request.Context(), id)
		if err != nil {
			util.LogInternalError(c, err)
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// RoleMiddleware 限制接口的用户角色，管理员直接放行
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		if user.Role == model.Admin {
			c.Next()
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		util.Forbidden(c)
		c.Abort()
	}
}
