package controller

import (
	"careiq_backend/internal/service"
	"careiq_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ExportController struct {
	ExportService *service.ExportService
}

func NewExportController(exportService *service.ExportService) *ExportController {
	return &ExportController{ExportService: exportService}
}

// Export godoc
// @Summary 导出记录
// @Description 以 CSV 附件或 JSON 导出记录，可按参与者和时间范围过滤
// @Tags 导出
// @Produce json,text/csv
// @Security BearerAuth
// @Param format path string true "导出格式" Enums(csv, json)
// @Param participant_id query string false "参与者ID"
// @Param start_date query string false "开始时间 (RFC3339)"
// @Param end_date query string false "结束时间 (RFC3339)"
// @Success 200 {object} service.NotesExport
// @Failure 400 {object} util.Response "格式不支持"
// @Router /api/export/{format} [get]
func (c *ExportController) Export(ctx *gin.Context) {
	format := ctx.Param("format")
	if !service.ValidExportFormat(format) {
		respondError(ctx, util.ErrInvalidExportFormat)
		return
	}

	filter := service.ExportFilter{
		ParticipantID: ctx.Query("participant_id"),
		StartDate:     ctx.Query("start_date"),
		EndDate:       ctx.Query("end_date"),
	}

	if format == service.ExportFormatJSON {
		out, err := c.ExportService.ExportJSON(ctx.Request.Context(), filter)
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, out)
		return
	}

	data, err := c.ExportService.ExportCSV(ctx.Request.Context(), filter)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", "attachment; filename="+c.ExportService.Filename(format))
	ctx.Data(http.StatusOK, "text/csv", data)
}
