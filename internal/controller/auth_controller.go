package controller

import (
	"careiq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct{}

func NewAuthController() *AuthController {
	return &AuthController{}
}

// Verify godoc
// @Summary 校验身份令牌
// @Description 校验 Bearer 令牌，首次登录时创建员工账号，返回当前用户
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 401 {object} util.Response "令牌无效或已过期"
// @Router /api/auth/verify [post]
func (c *AuthController) Verify(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, user)
}
