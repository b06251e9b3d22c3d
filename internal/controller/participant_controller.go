package controller

import (
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ParticipantController struct {
	ParticipantService *service.ParticipantService
}

func NewParticipantController(participantService *service.ParticipantService) *ParticipantController {
	return &ParticipantController{ParticipantService: participantService}
}

// CreateParticipantRequest 新建参与者
// swagger:model CreateParticipantRequest
type CreateParticipantRequest struct {
	Name string `json:"name" binding:"required"`
}

// List godoc
// @Summary 参与者列表
// @Description 返回全部参与者及各自的记录数
// @Tags 参与者
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.ParticipantWithCount}
// @Router /api/participants [get]
func (c *ParticipantController) List(ctx *gin.Context) {
	participants, err := c.ParticipantService.List(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, participants)
}

// Create godoc
// @Summary 新建参与者
// @Tags 参与者
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateParticipantRequest true "参与者信息"
// @Success 201 {object} util.Response{data=model.ParticipantWithCount}
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/participants [post]
func (c *ParticipantController) Create(ctx *gin.Context) {
	var req CreateParticipantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	participant, err := c.ParticipantService.Create(ctx.Request.Context(), req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, participant)
}
