package controller

import (
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"
	"careiq_backend/pkg/logger"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthController struct {
	DB            *gorm.DB
	AI            *service.AIService
	Transcription *service.TranscriptionService
	// 启动时探测一次，缺少 ffmpeg 时语音时长按文件大小估算
	ffmpegVersion string
}

func NewHealthController(db *gorm.DB, ai *service.AIService, transcription *service.TranscriptionService) *HealthController {
	version, err := util.GetFFmpegVersion()
	if err != nil {
		logger.Log.Warn("ffmpeg not available, audio duration will be estimated", zap.Error(err))
	}
	return &HealthController{DB: db, AI: ai, Transcription: transcription, ffmpegVersion: version}
}

func enabledString(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

// Root godoc
// @Summary 服务信息
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router / [get]
func (c *HealthController) Root(ctx *gin.Context) {
	util.Success(ctx, gin.H{
		"message":  "CareIQ API v2.0",
		"status":   "running",
		"features": []string{"token-auth", "voice-notes", "nova-ai", "training-nudges", "export"},
	})
}

// @Summary 健康检查
// @Description 检查服务状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "数据库不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.PingContext(ctx.Request.Context()); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	util.Success(ctx, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"components": gin.H{
			"database": "up",
			"speech":   enabledString(c.Transcription != nil && c.Transcription.Enabled()),
			"ai":       enabledString(c.AI != nil && c.AI.Enabled()),
			"ffmpeg":   enabledString(c.ffmpegVersion != ""),
		},
	})
}
