package controller

import (
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 把业务错误映射为统一响应，未识别的错误记录日志后返回 500
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrParticipantNotFound):
		util.NotFoundMessage(ctx, "Participant not found")
	case errors.Is(err, util.ErrModuleNotFound):
		util.NotFoundMessage(ctx, "Training module not found")
	case errors.Is(err, util.ErrUserNotFound):
		util.NotFoundMessage(ctx, "User not found")
	case errors.Is(err, util.ErrNoSpeechDetected):
		util.BadRequest(ctx, "No speech detected")
	case errors.Is(err, util.ErrInvalidExportFormat),
		errors.Is(err, util.ErrEmptyQuestion),
		errors.Is(err, service.ErrNoteTextRequired),
		errors.Is(err, service.ErrParticipantNameRequired),
		errors.Is(err, service.ErrUnsupportedAudio):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, service.ErrAudioTooLarge):
		util.Error(ctx, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, util.ErrInvalidToken):
		util.Unauthorized(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
