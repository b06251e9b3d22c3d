package controller

import (
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NovaController struct {
	NovaService *service.NovaService
}

func NewNovaController(novaService *service.NovaService) *NovaController {
	return &NovaController{NovaService: novaService}
}

// Ask godoc
// @Summary 向 Nova 助手提问
// @Description 可带参与者上下文和会话ID；AI 不可用时返回固定建议且不计入提问次数
// @Tags 助手
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AskNovaRequest true "问题"
// @Success 200 {object} util.Response{data=service.AskNovaResponse}
// @Failure 400 {object} util.Response "问题为空"
// @Router /api/ask-nova [post]
func (c *NovaController) Ask(ctx *gin.Context) {
	var req service.AskNovaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.NovaService.Ask(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}
