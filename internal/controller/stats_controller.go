package controller

import (
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	StatsService *service.StatsService
}

func NewStatsController(statsService *service.StatsService) *StatsController {
	return &StatsController{StatsService: statsService}
}

// GetStats godoc
// @Summary 首页统计
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.DashboardStats}
// @Router /api/stats [get]
func (c *StatsController) GetStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	stats, err := c.StatsService.Dashboard(ctx.Request.Context(), user.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
