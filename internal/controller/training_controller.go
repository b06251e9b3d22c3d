package controller

import (
	"careiq_backend/internal/model"
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

type TrainingController struct {
	TrainingService *service.TrainingService
	ReportService   *service.TrainingReportService
}

func NewTrainingController(trainingService *service.TrainingService, reportService *service.TrainingReportService) *TrainingController {
	return &TrainingController{
		TrainingService: trainingService,
		ReportService:   reportService,
	}
}

// CompleteModuleRequest score 与 answers 二选一；给出 answers 时按测验评分
// swagger:model CompleteModuleRequest
type CompleteModuleRequest struct {
	Score   *int  `json:"score"`
	Answers []int `json:"answers"`
}

// ModuleDetail 模块内容及当前用户是否已完成
type ModuleDetail struct {
	*model.TrainingModule
	Completed bool `json:"completed"`
}

// GetStatus godoc
// @Summary 培训提示状态
// @Description 根据最近 24 小时的 RP 记录和提问次数判断是否需要培训，并给出推荐模块
// @Tags 培训
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.TrainingStatus}
// @Router /api/training-status [get]
func (c *TrainingController) GetStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	status, err := c.TrainingService.TrainingStatus(ctx.Request.Context(), user.ID, c.TrainingService.Now())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// ListModules godoc
// @Summary 培训模块列表
// @Tags 培训
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.ModuleSummary}
// @Router /api/training/modules [get]
func (c *TrainingController) ListModules(ctx *gin.Context) {
	util.Success(ctx, c.TrainingService.ListModules())
}

// GetModule godoc
// @Summary 培训模块详情
// @Tags 培训
// @Produce json
// @Security BearerAuth
// @Param id path string true "模块ID"
// @Success 200 {object} util.Response{data=ModuleDetail}
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/training/modules/{id} [get]
func (c *TrainingController) GetModule(ctx *gin.Context) {
	moduleID := ctx.Param("id")
	module, err := c.TrainingService.GetModule(moduleID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	user := util.GetUserFromContext(ctx)
	completed, err := c.TrainingService.HasCompleted(ctx.Request.Context(), user.ID, moduleID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, ModuleDetail{TrainingModule: module, Completed: completed})
}

// CompleteModule godoc
// @Summary 完成培训模块
// @Description 幂等：重复提交返回首次的完成记录
// @Tags 培训
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "模块ID"
// @Param body body CompleteModuleRequest false "分数或测验答案"
// @Success 200 {object} util.Response{data=model.TrainingCompletion}
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/training/modules/{id}/complete [post]
func (c *TrainingController) CompleteModule(ctx *gin.Context) {
	var req CompleteModuleRequest
	// 请求体可省略
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.BadRequest(ctx, err.Error())
		return
	}

	moduleID := ctx.Param("id")
	score := req.Score
	if req.Answers != nil {
		graded, err := c.TrainingService.GradeQuiz(moduleID, req.Answers)
		if err != nil {
			respondError(ctx, err)
			return
		}
		score = &graded
	}

	user := util.GetUserFromContext(ctx)
	completion, err := c.TrainingService.CompleteModule(ctx.Request.Context(), user.ID, moduleID, score)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, completion)
}

// Report godoc
// @Summary 培训提示汇总
// @Description 主管查看最近 24 小时内触发培训提示的员工，高优先级在前
// @Tags 培训
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.TrainingReportEntry}
// @Failure 403 {object} util.Response "仅主管可访问"
// @Router /api/training/report [get]
func (c *TrainingController) Report(ctx *gin.Context) {
	entries, err := c.ReportService.Report(ctx.Request.Context(), c.TrainingService.Now())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
