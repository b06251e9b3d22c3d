package controller

import (
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type NoteController struct {
	NoteService *service.NoteService
}

func NewNoteController(noteService *service.NoteService) *NoteController {
	return &NoteController{NoteService: noteService}
}

// CreateNote godoc
// @Summary 新建文本记录
// @Description 保存进展记录并分析是否涉及限制性措施，返回记录和当前培训状态
// @Tags 记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateNoteRequest true "记录内容"
// @Success 201 {object} util.Response{data=service.NoteResult}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "参与者不存在"
// @Router /api/notes [post]
func (c *NoteController) CreateNote(ctx *gin.Context) {
	var req service.CreateNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.NoteService.CreateTextNote(ctx.Request.Context(), util.GetUserFromContext(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// VoiceToText godoc
// @Summary 语音记录
// @Description 上传音频，转写为文本后按文本记录同样分析并保存
// @Tags 记录
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param audio formData file true "音频文件"
// @Param participant_id formData string true "参与者ID"
// @Success 201 {object} util.Response{data=service.NoteResult}
// @Failure 400 {object} util.Response "未识别到语音或格式不支持"
// @Failure 404 {object} util.Response "参与者不存在"
// @Failure 413 {object} util.Response "文件过大"
// @Router /api/voice-to-text [post]
func (c *NoteController) VoiceToText(ctx *gin.Context) {
	participantID := ctx.PostForm("participant_id")
	if participantID == "" {
		util.BadRequest(ctx, "participant_id is required")
		return
	}

	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "audio file is required")
		return
	}
	if fileHeader.Size > util.MaxAudioBytes {
		util.Error(ctx, http.StatusRequestEntityTooLarge, service.ErrAudioTooLarge.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, util.MaxAudioBytes+1))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	result, err := c.NoteService.CreateVoiceNote(ctx.Request.Context(), util.GetUserFromContext(ctx), service.VoiceNoteInput{
		ParticipantID: participantID,
		Filename:      fileHeader.Filename,
		Audio:         audio,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// ListNotes godoc
// @Summary 记录列表
// @Description 按时间倒序分页返回记录
// @Tags 记录
// @Produce json
// @Security BearerAuth
// @Param participant_id query string false "参与者ID"
// @Param skip query int false "跳过条数" default(0)
// @Param limit query int false "每页条数" default(50)
// @Success 200 {object} util.Response{data=util.PageResponse{list=[]service.NoteView}}
// @Router /api/notes [get]
func (c *NoteController) ListNotes(ctx *gin.Context) {
	skip, limit := util.ClampPage(
		util.ParseIntDefault(ctx.Query("skip"), 0),
		util.ParseIntDefault(ctx.Query("limit"), util.DefaultPageLimit),
	)

	notes, err := c.NoteService.ListNotes(ctx.Request.Context(), ctx.Query("participant_id"), skip, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: notes, Skip: skip, Limit: limit})
}
