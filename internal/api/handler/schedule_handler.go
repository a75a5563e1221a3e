package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/service"
	pkgerrors "github.com/ej-follero/icct-student-attendance-system-sub003/pkg/errors"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/response"
)

// ScheduleHandler 课程排期模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// CreateSchedule 创建课程排期（冲突阻断）
// POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, schedule)
}

// ListSchedules 课程排期列表
// GET /api/v1/schedules
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	var req dto.ScheduleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedules, err := h.scheduleSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": schedules})
}

// GetSchedule 课程排期详情（含已归档）
// GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "排期ID不能为空")
		return
	}

	schedule, err := h.scheduleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// UpdateSchedule 编辑课程排期（冲突仅提示，不阻断保存）
// PUT /api/v1/schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "排期ID不能为空")
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	schedule, report, err := h.scheduleSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"schedule": schedule, "conflict_report": report})
}

// TransitionSchedule 状态流转
// PUT /api/v1/schedules/:id/status
func (h *ScheduleHandler) TransitionSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "排期ID不能为空")
		return
	}

	var req dto.TransitionScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Transition(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// DeleteSchedule 归档课程排期（软删除，强制 cancelled）
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "排期ID不能为空")
		return
	}

	callerID, ok := MustGetCallerID(c)
	if !ok {
		return
	}

	if err := h.scheduleSvc.SoftDelete(c.Request.Context(), id, callerID); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// RestoreSchedule 还原归档（状态保持 cancelled，复课需显式流转）
// PUT /api/v1/schedules/:id/restore
func (h *ScheduleHandler) RestoreSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "排期ID不能为空")
		return
	}

	schedule, err := h.scheduleSvc.Restore(c.Request.Context(), id)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// CheckConflicts 冲突预检（只读）
// POST /api/v1/schedules/check-conflicts
func (h *ScheduleHandler) CheckConflicts(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.scheduleSvc.CheckConflicts(c.Request.Context(), &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, report)
}

// CheckCapacity 容量检查（超员只告警）
// POST /api/v1/schedules/:id/check-capacity
func (h *ScheduleHandler) CheckCapacity(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "排期ID不能为空")
		return
	}

	var req dto.CapacityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.CheckCapacity(c.Request.Context(), id, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// handleScheduleError 统一处理排课模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 15001, "课程排期不存在")
	case errors.Is(err, service.ErrScheduleConflict):
		response.Conflict(c, 15002, "排期冲突：教室或教师在该时段已被占用")
	case errors.Is(err, service.ErrScheduleArchived):
		response.BadRequest(c, 15003, "课程排期已归档，不可操作")
	case errors.Is(err, service.ErrScheduleNotArchived):
		response.BadRequest(c, 15004, "课程排期未归档，无需还原")
	case errors.Is(err, service.ErrInvalidTransition):
		response.BadRequest(c, 15005, "非法状态流转")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.BadRequest(c, 15006, "科目不存在")
	case errors.Is(err, service.ErrSectionNotFound):
		response.BadRequest(c, 15007, "班级不存在")
	case errors.Is(err, service.ErrRoomNotFound):
		response.BadRequest(c, 15008, "教室不存在")
	case errors.Is(err, service.ErrInstructorNotFound):
		response.BadRequest(c, 15009, "教师不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.BadRequest(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrNoActiveSemester):
		response.BadRequest(c, 14003, "当前无激活学期")
	case errors.Is(err, service.ErrSlotBusy):
		response.Conflict(c, 15010, "该时段正在被其他请求编辑，请稍后重试")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15011, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, 10001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/schedule_handler.go
