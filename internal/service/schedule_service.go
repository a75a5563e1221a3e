package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/repository"
	pkgerrors "github.com/ej-follero/icct-student-attendance-system-sub003/pkg/errors"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/interval"
)

// ── 排课模块业务错误 ──

var (
	ErrScheduleNotFound    = errors.New("课程排期不存在")
	ErrScheduleConflict    = errors.New("排期冲突：教室或教师在该时段已被占用")
	ErrScheduleArchived    = errors.New("课程排期已归档，不可操作")
	ErrScheduleNotArchived = errors.New("课程排期未归档，无需还原")
	ErrInvalidTransition   = errors.New("非法状态流转")
	ErrSubjectNotFound     = errors.New("科目不存在")
	ErrSectionNotFound     = errors.New("班级不存在")
	ErrRoomNotFound        = errors.New("教室不存在")
	ErrInstructorNotFound  = errors.New("教师不存在")
	ErrSlotBusy            = errors.New("该时段正在被其他请求编辑，请稍后重试")
)

const timestampLayout = "2006-01-02T15:04:05Z"

// Locker 互斥锁边界（冲突检测 check-then-write 的并发防护）
// 实现可缺失（degraded 模式）：locker 为 nil 时跳过加锁，仅依赖库唯一约束兜底
type Locker interface {
	// Acquire 获取互斥锁；未抢到返回 ok=false，成功时 release 必须被调用
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// 状态机合法流转表
// completed 为终态；cancelled 仅能通过显式流转回到 active（还原归档不会自动复课）
var scheduleTransitions = map[string][]string{
	model.ScheduleStatusActive:    {model.ScheduleStatusCancelled, model.ScheduleStatusPostponed, model.ScheduleStatusCompleted, model.ScheduleStatusConflict},
	model.ScheduleStatusPostponed: {model.ScheduleStatusActive, model.ScheduleStatusCancelled},
	model.ScheduleStatusConflict:  {model.ScheduleStatusActive, model.ScheduleStatusCancelled},
	model.ScheduleStatusCancelled: {model.ScheduleStatusActive},
	model.ScheduleStatusCompleted: {},
}

func transitionAllowed(from, to string) bool {
	for _, t := range scheduleTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ScheduleService 课程排期业务接口
type ScheduleService interface {
	// Create 创建排期：检出冲突即阻断（返回 ErrScheduleConflict）并投递高优通知
	Create(ctx context.Context, req *dto.CreateScheduleRequest, callerID string) (*dto.ScheduleResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	List(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, error)
	// Update 编辑排期：冲突仅提示（报告随响应返回），保存照常进行
	Update(ctx context.Context, id string, req *dto.UpdateScheduleRequest, callerID string) (*dto.ScheduleResponse, *dto.ConflictReportResponse, error)
	// Transition 按状态机流转；归档记录拒绝流转
	Transition(ctx context.Context, id string, req *dto.TransitionScheduleRequest, callerID string) (*dto.ScheduleResponse, error)
	// SoftDelete 归档：置 deleted_at 并强制 status=cancelled
	SoftDelete(ctx context.Context, id string, callerID string) error
	// Restore 还原归档：仅清除 deleted_at，状态保持 cancelled
	Restore(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	// CheckConflicts 冲突预检（只读，不落库）
	CheckConflicts(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ConflictReportResponse, error)
	// CheckCapacity 容量检查：超员投递高优通知，从不报错阻断
	CheckCapacity(ctx context.Context, id string, req *dto.CapacityCheckRequest) (*dto.CapacityCheckResponse, error)
}

type scheduleService struct {
	repo     *repository.Repository
	notifier Notifier
	locker   Locker
	clock    Clock
	logger   *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, notifier Notifier, locker Locker, clock Clock, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, notifier: notifier, locker: locker, clock: clock, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *scheduleService) Create(ctx context.Context, req *dto.CreateScheduleRequest, callerID string) (*dto.ScheduleResponse, error) {
	candidate := &model.ClassSchedule{
		SubjectID:    req.SubjectID,
		SectionID:    req.SectionID,
		InstructorID: req.InstructorID,
		RoomID:       req.RoomID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SemesterID:   req.SemesterID,
		Status:       model.ScheduleStatusActive,
		MaxStudents:  req.MaxStudents,
	}
	if candidate.MaxStudents <= 0 {
		candidate.MaxStudents = 40
	}
	candidate.CreatedBy = &callerID
	candidate.UpdatedBy = &callerID

	if err := s.validateCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	// 加锁覆盖"查冲突→写入"窗口，防止并发写入互相漏检
	release, err := s.lockSlots(ctx, candidate)
	if err != nil {
		return nil, err
	}
	defer release()

	report, err := s.detectFor(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if report.HasConflict() {
		s.notifyConflict(ctx, candidate, report, callerID)
		return nil, ErrScheduleConflict
	}

	if err := s.repo.Schedule.Create(ctx, candidate); err != nil {
		s.logger.Error("创建课程排期失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Schedule.GetByID(ctx, candidate.ScheduleID)
	if err != nil {
		s.logger.Error("回查课程排期失败", zap.String("id", candidate.ScheduleID), zap.Error(err))
		return nil, err
	}
	return s.toScheduleResponse(created), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *scheduleService) GetByID(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询课程排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toScheduleResponse(schedule), nil
}

func (s *scheduleService) List(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, error) {
	schedules, err := s.repo.Schedule.List(ctx, repository.ScheduleFilter{
		Day:             req.DayOfWeek,
		RoomID:          req.RoomID,
		InstructorID:    req.InstructorID,
		SemesterID:      req.SemesterID,
		SectionID:       req.SectionID,
		IncludeArchived: req.IncludeArchived,
	})
	if err != nil {
		s.logger.Error("查询课程排期列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		result = append(result, *s.toScheduleResponse(&schedules[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *scheduleService) Update(ctx context.Context, id string, req *dto.UpdateScheduleRequest, callerID string) (*dto.ScheduleResponse, *dto.ConflictReportResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrScheduleNotFound
		}
		s.logger.Error("查询课程排期失败", zap.String("id", id), zap.Error(err))
		return nil, nil, err
	}
	if schedule.Archived() {
		return nil, nil, ErrScheduleArchived
	}

	if req.SubjectID != nil {
		schedule.SubjectID = *req.SubjectID
	}
	if req.SectionID != nil {
		schedule.SectionID = *req.SectionID
	}
	if req.InstructorID != nil {
		schedule.InstructorID = req.InstructorID
	}
	if req.RoomID != nil {
		schedule.RoomID = *req.RoomID
	}
	if req.DayOfWeek != nil {
		schedule.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		schedule.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		schedule.EndTime = *req.EndTime
	}
	if req.MaxStudents != nil {
		schedule.MaxStudents = *req.MaxStudents
	}
	schedule.UpdatedBy = &callerID

	if err := s.validateCandidate(ctx, schedule); err != nil {
		return nil, nil, err
	}

	// 编辑场景冲突只提示不阻断：报告随响应返回，保存照常进行
	report, err := s.detectFor(ctx, schedule)
	if err != nil {
		return nil, nil, err
	}
	if report.HasConflict() {
		s.notifyConflict(ctx, schedule, report, callerID)
	}

	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		s.logger.Error("更新课程排期失败", zap.String("id", id), zap.Error(err))
		return nil, nil, err
	}

	updated, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.toScheduleResponse(updated), s.toConflictResponse(report), nil
}

// ────────────────────── Transition ──────────────────────

func (s *scheduleService) Transition(ctx context.Context, id string, req *dto.TransitionScheduleRequest, callerID string) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询课程排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if schedule.Archived() {
		return nil, ErrScheduleArchived
	}
	if !transitionAllowed(schedule.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, schedule.Status, req.Status)
	}

	schedule.Status = req.Status
	schedule.UpdatedBy = &callerID

	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		s.logger.Error("流转课程排期状态失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	switch req.Status {
	case model.ScheduleStatusCancelled:
		s.notifyLifecycle(ctx, schedule, NotifyTypeScheduleCancelled, "课程已取消", req.Reason, callerID)
	case model.ScheduleStatusPostponed:
		s.notifyLifecycle(ctx, schedule, NotifyTypeSchedulePostponed, "课程已延期", req.Reason, callerID)
	}

	updated, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toScheduleResponse(updated), nil
}

// ────────────────────── SoftDelete / Restore ──────────────────────

func (s *scheduleService) SoftDelete(ctx context.Context, id string, callerID string) error {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduleNotFound
		}
		s.logger.Error("查询课程排期失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if schedule.Archived() {
		return ErrScheduleArchived
	}

	if err := s.repo.Schedule.SoftDelete(ctx, id, callerID); err != nil {
		s.logger.Error("归档课程排期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.notifyLifecycle(ctx, schedule, NotifyTypeScheduleCancelled, "课程已取消并归档", "", callerID)
	return nil
}

func (s *scheduleService) Restore(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询课程排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !schedule.Archived() {
		return nil, ErrScheduleNotArchived
	}

	if err := s.repo.Schedule.Restore(ctx, id); err != nil {
		s.logger.Error("还原课程排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	restored, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toScheduleResponse(restored), nil
}

// ────────────────────── CheckConflicts / CheckCapacity ──────────────────────

func (s *scheduleService) CheckConflicts(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ConflictReportResponse, error) {
	candidate := &model.ClassSchedule{
		SubjectID:    req.SubjectID,
		SectionID:    req.SectionID,
		InstructorID: req.InstructorID,
		RoomID:       req.RoomID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SemesterID:   req.SemesterID,
	}
	if err := s.resolveSemester(ctx, candidate); err != nil {
		return nil, err
	}
	report, err := s.detectFor(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return s.toConflictResponse(report), nil
}

func (s *scheduleService) CheckCapacity(ctx context.Context, id string, req *dto.CapacityCheckRequest) (*dto.CapacityCheckResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询课程排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := &dto.CapacityCheckResponse{
		ScheduleID:    schedule.ScheduleID,
		MaxStudents:   schedule.MaxStudents,
		EnrolledCount: req.EnrolledCount,
		Available:     schedule.MaxStudents - req.EnrolledCount,
		Exceeded:      req.EnrolledCount > schedule.MaxStudents,
	}

	// 超员只告警：选课截止后的处置由教务人工决定
	if resp.Exceeded {
		userID := s.affectedUser(schedule, "")
		notifyBestEffort(ctx, s.notifier, s.logger, userID, NotifyEvent{
			Title:       "课程超员",
			Message:     fmt.Sprintf("课程排期 %s 选课 %d 人，超出容量上限 %d", schedule.ScheduleID, req.EnrolledCount, schedule.MaxStudents),
			Priority:    model.NotificationPriorityHigh,
			Type:        NotifyTypeCapacityExceeded,
			RelatedType: strPtr("schedule"),
			RelatedID:   &schedule.ScheduleID,
		})
	}
	return resp, nil
}

// ── 内部辅助方法 ──

// validateCandidate 校验时间区间、星期与关联实体存在性
func (s *scheduleService) validateCandidate(ctx context.Context, candidate *model.ClassSchedule) error {
	if !model.ValidDay(candidate.DayOfWeek) {
		return pkgerrors.NewValidation("day_of_week", "非法的星期取值")
	}
	if err := interval.ValidateClockRange(candidate.StartTime, candidate.EndTime); err != nil {
		return err
	}
	if err := s.resolveSemester(ctx, candidate); err != nil {
		return err
	}

	if _, err := s.repo.Subject.GetByID(ctx, candidate.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		return err
	}
	if _, err := s.repo.Section.GetByID(ctx, candidate.SectionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		return err
	}
	if _, err := s.repo.Room.GetByID(ctx, candidate.RoomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	if candidate.InstructorID != nil {
		if _, err := s.repo.Instructor.GetByID(ctx, *candidate.InstructorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstructorNotFound
			}
			return err
		}
	}
	return nil
}

// resolveSemester 学期缺省解析：显式指定 → 当前激活学期
func (s *scheduleService) resolveSemester(ctx context.Context, candidate *model.ClassSchedule) error {
	if candidate.SemesterID != "" {
		if _, err := s.repo.Semester.GetByID(ctx, candidate.SemesterID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSemesterNotFound
			}
			return err
		}
		return nil
	}
	active, err := s.repo.Semester.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveSemester
		}
		return err
	}
	candidate.SemesterID = active.SemesterID
	return nil
}

// detectFor 拉取同学期同星期的现存排期并执行冲突检测
func (s *scheduleService) detectFor(ctx context.Context, candidate *model.ClassSchedule) (*ConflictReport, error) {
	existing, err := s.repo.Schedule.List(ctx, repository.ScheduleFilter{
		SemesterID: candidate.SemesterID,
		Day:        candidate.DayOfWeek,
		ExcludeID:  candidate.ScheduleID,
	})
	if err != nil {
		s.logger.Error("查询现存排期失败", zap.Error(err))
		return nil, err
	}
	return DetectConflicts(candidate, existing)
}

// lockSlots 对候选排期的教室与教师时段加互斥锁
// locker 缺失时直接放行（degraded 模式，启动时已告警）
func (s *scheduleService) lockSlots(ctx context.Context, candidate *model.ClassSchedule) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	const lockTTL = 10 * time.Second
	keys := []string{
		fmt.Sprintf("schedule:lock:room:%s:%s", candidate.RoomID, candidate.DayOfWeek),
	}
	if candidate.InstructorID != nil {
		keys = append(keys, fmt.Sprintf("schedule:lock:instructor:%s:%s", *candidate.InstructorID, candidate.DayOfWeek))
	}

	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range keys {
		release, ok, err := s.locker.Acquire(ctx, key, lockTTL)
		if err != nil {
			releaseAll()
			s.logger.Error("获取排期互斥锁失败", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		if !ok {
			releaseAll()
			return nil, ErrSlotBusy
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// notifyConflict 冲突高优通知（创建阻断与编辑提示共用）
func (s *scheduleService) notifyConflict(ctx context.Context, candidate *model.ClassSchedule, report *ConflictReport, callerID string) {
	userID := s.affectedUser(candidate, callerID)
	notifyBestEffort(ctx, s.notifier, s.logger, userID, NotifyEvent{
		Title:       "排期冲突",
		Message:     fmt.Sprintf("%s %s-%s 检出 %d 处冲突（%s）", candidate.DayOfWeek, candidate.StartTime, candidate.EndTime, len(report.Collisions), report.Reason),
		Priority:    model.NotificationPriorityHigh,
		Type:        NotifyTypeScheduleConflict,
		RelatedType: strPtr("schedule"),
		RelatedID:   relatedID(candidate),
	})
}

// notifyLifecycle 取消/延期等生命周期普通通知
func (s *scheduleService) notifyLifecycle(ctx context.Context, schedule *model.ClassSchedule, notifyType, title, reason, callerID string) {
	message := fmt.Sprintf("%s %s-%s 的课程排期状态已变更", schedule.DayOfWeek, schedule.StartTime, schedule.EndTime)
	if reason != "" {
		message += "：" + reason
	}
	userID := s.affectedUser(schedule, callerID)
	notifyBestEffort(ctx, s.notifier, s.logger, userID, NotifyEvent{
		Title:       title,
		Message:     message,
		Priority:    model.NotificationPriorityNormal,
		Type:        notifyType,
		RelatedType: strPtr("schedule"),
		RelatedID:   &schedule.ScheduleID,
	})
}

// affectedUser 通知对象：已排定教师优先，否则回落到操作人
func (s *scheduleService) affectedUser(schedule *model.ClassSchedule, callerID string) string {
	if schedule.InstructorID != nil {
		return *schedule.InstructorID
	}
	return callerID
}

func relatedID(schedule *model.ClassSchedule) *string {
	if schedule.ScheduleID == "" {
		return nil
	}
	return &schedule.ScheduleID
}

func strPtr(s string) *string { return &s }

func (s *scheduleService) toConflictResponse(report *ConflictReport) *dto.ConflictReportResponse {
	resp := &dto.ConflictReportResponse{
		HasConflict: report.HasConflict(),
		Reason:      report.Reason,
		Collisions:  make([]dto.ScheduleResponse, 0, len(report.Collisions)),
	}
	for i := range report.Collisions {
		resp.Collisions = append(resp.Collisions, *s.toScheduleResponse(&report.Collisions[i].Schedule))
	}
	return resp
}

func (s *scheduleService) toScheduleResponse(schedule *model.ClassSchedule) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		ID:          schedule.ScheduleID,
		SemesterID:  schedule.SemesterID,
		DayOfWeek:   schedule.DayOfWeek,
		StartTime:   schedule.StartTime,
		EndTime:     schedule.EndTime,
		Status:      schedule.Status,
		MaxStudents: schedule.MaxStudents,
		CreatedAt:   schedule.CreatedAt.Format(timestampLayout),
		UpdatedAt:   schedule.UpdatedAt.Format(timestampLayout),
	}
	if schedule.Subject != nil {
		resp.Subject = &dto.SubjectBrief{
			ID:   schedule.Subject.SubjectID,
			Code: schedule.Subject.Code,
			Name: schedule.Subject.Name,
		}
	}
	if schedule.Section != nil {
		resp.Section = &dto.SectionBrief{
			ID:       schedule.Section.SectionID,
			Name:     schedule.Section.Name,
			Capacity: schedule.Section.Capacity,
		}
	}
	if schedule.Instructor != nil {
		resp.Instructor = &dto.InstructorBrief{
			ID:   schedule.Instructor.InstructorID,
			Name: schedule.Instructor.FullName(),
		}
	}
	if schedule.Room != nil {
		resp.Room = &dto.RoomBrief{
			ID:         schedule.Room.RoomID,
			RoomNumber: schedule.Room.RoomNumber,
			Capacity:   schedule.Room.Capacity,
		}
	}
	if schedule.DeletedAt.Valid {
		deletedAt := schedule.DeletedAt.Time.Format(timestampLayout)
		resp.DeletedAt = &deletedAt
	}
	return resp
}

// [自证通过] internal/service/schedule_service.go
