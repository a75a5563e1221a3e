package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/dto"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/repository"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/interval"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound     = errors.New("学期不存在")
	ErrSemesterExists       = errors.New("该学年下同类型学期已存在")
	ErrSemesterDateInvalid  = errors.New("学期日期非法：结束日期必须晚于开始日期")
	ErrAcademicYearNotFound = errors.New("学年不存在")
	ErrNoActiveSemester     = errors.New("当前无激活学期")
)

const dateLayout = "2006-01-02"

// Derivation 活动学期推导结果
// Semesters 为输入列表的副本，IsActive 已按"首个包含今日者胜出"规则填充；
// 日期缺失/非法的学期不参与 min/max 计算但原样返回（IsActive=false）
type Derivation struct {
	Semesters    []model.Semester
	HasCurrent   bool
	WithinRange  bool
	CurrentIndex int // -1 表示无当前学期
	ActiveYear   int // 当前学期所属学年；无当前学期时为 0
}

// DeriveActive 按"今日"推导当前学期（纯函数，决策与副作用分离）
//
// 调用方须按类型/开始日期预排序传入；区间重叠时首个匹配者确定性胜出。
// 学年 WithinRange = 今日 ∈ [min(开始日期), max(结束日期)]，
// 覆盖学期间歇期（无单个学期匹配但学年仍在进行中）。
// 空列表返回 HasCurrent=false, WithinRange=false，不报错。
func DeriveActive(semesters []model.Semester, today time.Time) Derivation {
	// 学期为日期粒度，去掉时分秒再比较
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	result := Derivation{
		Semesters:    make([]model.Semester, len(semesters)),
		CurrentIndex: -1,
	}
	copy(result.Semesters, semesters)

	var minStart, maxEnd time.Time
	hasValid := false

	for i := range result.Semesters {
		s := &result.Semesters[i]
		s.IsActive = false

		r := interval.DateRange{Start: s.StartDate, End: s.EndDate}
		if !r.Valid() {
			continue
		}

		if !hasValid || s.StartDate.Before(minStart) {
			minStart = s.StartDate
		}
		if !hasValid || s.EndDate.After(maxEnd) {
			maxEnd = s.EndDate
		}
		hasValid = true

		if result.CurrentIndex < 0 && interval.Contains(r, today) {
			s.IsActive = true
			result.HasCurrent = true
			result.CurrentIndex = i
			result.ActiveYear = s.Year
		}
	}

	if hasValid {
		result.WithinRange = interval.Contains(interval.DateRange{Start: minStart, End: maxEnd}, today)
	}

	return result
}

// deriveStatus 由推导结果与今日推出学期状态；cancelled 永不被覆盖
func deriveStatus(s *model.Semester, today time.Time, isActive bool) string {
	if s.Status == model.SemesterStatusCancelled {
		return model.SemesterStatusCancelled
	}
	if isActive {
		return model.SemesterStatusCurrent
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if !s.EndDate.IsZero() && s.EndDate.Before(today) {
		return model.SemesterStatusCompleted
	}
	return model.SemesterStatusUpcoming
}

// SemesterService 学期/学年业务接口
type SemesterService interface {
	// CreateAcademicYear 创建学年：同学年全部学期成批创建，
	// 推导出活动学年时在同一事务内清除其他学年的 is_active（单活动学年不变式）
	CreateAcademicYear(ctx context.Context, req *dto.CreateAcademicYearRequest, callerID string) (*dto.AcademicYearResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	GetCurrent(ctx context.Context) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	// GetYearView 学年视图：虚拟分组，起止与激活态即时推导
	GetYearView(ctx context.Context, year int) (*dto.AcademicYearResponse, error)
	// Update 日期变更后自动触发重新推导
	Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	// Cancel 学期从不物理删除，只流转为 cancelled
	Cancel(ctx context.Context, id string, callerID string) error
	// RefreshActive 全量重推导并持久化翻转（夜间任务与日期变更后调用）
	RefreshActive(ctx context.Context) error
	// EnforceSingleActiveYear 清除指定学年之外所有学期的激活标记
	EnforceSingleActiveYear(ctx context.Context, year int) error
}

type semesterService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, clock Clock, logger *zap.Logger) SemesterService {
	return &semesterService{repo: repo, clock: clock, logger: logger}
}

// ────────────────────── CreateAcademicYear ──────────────────────

func (s *semesterService) CreateAcademicYear(ctx context.Context, req *dto.CreateAcademicYearRequest, callerID string) (*dto.AcademicYearResponse, error) {
	// 请求内类型查重
	seen := make(map[string]bool, len(req.Semesters))
	for _, term := range req.Semesters {
		if seen[term.Type] {
			return nil, ErrSemesterExists
		}
		seen[term.Type] = true
	}

	// 与已有学期查重（(year, type) 唯一）
	existing, err := s.repo.Semester.List(ctx, repository.SemesterFilter{Year: &req.Year})
	if err != nil {
		s.logger.Error("查询学年学期失败", zap.Int("year", req.Year), zap.Error(err))
		return nil, err
	}
	for _, e := range existing {
		if seen[e.Type] {
			return nil, ErrSemesterExists
		}
	}

	// 解析并校验各学期日期
	semesters := make([]model.Semester, 0, len(req.Semesters))
	for _, term := range req.Semesters {
		m, err := s.buildSemester(req.Year, &term, callerID)
		if err != nil {
			return nil, err
		}
		semesters = append(semesters, *m)
	}

	// 创建前推导初始激活态
	derivation := DeriveActive(semesters, s.clock.Now())
	for i := range derivation.Semesters {
		sem := &derivation.Semesters[i]
		sem.Status = deriveStatus(sem, s.clock.Now(), sem.IsActive)
	}

	// 事务：批量创建 + 单活动学年不变式
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
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

	if err := txRepo.Semester.BatchCreate(ctx, derivation.Semesters); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("批量创建学期失败", zap.Int("year", req.Year), zap.Error(err))
		return nil, err
	}

	if derivation.HasCurrent || derivation.WithinRange {
		if err := txRepo.Semester.ClearActiveOutsideYear(ctx, req.Year); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("清除其他学年激活标记失败", zap.Int("year", req.Year), zap.Error(err))
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return s.buildYearResponse(req.Year, derivation), nil
}

// ────────────────────── GetByID / GetCurrent / List ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toSemesterResponse(semester), nil
}

func (s *semesterService) GetCurrent(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSemester
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}
	return s.toSemesterResponse(semester), nil
}

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx, repository.SemesterFilter{})
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *s.toSemesterResponse(&semesters[i]))
	}
	return result, nil
}

// ────────────────────── GetYearView ──────────────────────

func (s *semesterService) GetYearView(ctx context.Context, year int) (*dto.AcademicYearResponse, error) {
	semesters, err := s.repo.Semester.List(ctx, repository.SemesterFilter{Year: &year})
	if err != nil {
		s.logger.Error("查询学年学期失败", zap.Int("year", year), zap.Error(err))
		return nil, err
	}
	if len(semesters) == 0 {
		return nil, ErrAcademicYearNotFound
	}

	derivation := DeriveActive(semesters, s.clock.Now())
	return s.buildYearResponse(year, derivation), nil
}

// ────────────────────── Update ──────────────────────

func (s *semesterService) Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	datesChanged := false
	if req.StartDate != nil {
		start, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			return nil, ErrSemesterDateInvalid
		}
		semester.StartDate = start
		datesChanged = true
	}
	if req.EndDate != nil {
		end, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			return nil, ErrSemesterDateInvalid
		}
		semester.EndDate = end
		datesChanged = true
	}
	if !semester.EndDate.After(semester.StartDate) {
		return nil, ErrSemesterDateInvalid
	}

	if semester.RegistrationStart, semester.RegistrationEnd, err = s.applyOptionalRange(
		req.RegistrationStart, req.RegistrationEnd, semester.RegistrationStart, semester.RegistrationEnd); err != nil {
		return nil, err
	}
	if semester.EnrollmentStart, semester.EnrollmentEnd, err = s.applyOptionalRange(
		req.EnrollmentStart, req.EnrollmentEnd, semester.EnrollmentStart, semester.EnrollmentEnd); err != nil {
		return nil, err
	}

	if req.Status != nil {
		semester.Status = *req.Status
		if *req.Status == model.SemesterStatusCancelled {
			semester.IsActive = false
		}
	}
	if req.Notes != nil {
		semester.Notes = *req.Notes
	}
	semester.UpdatedBy = &callerID

	if err := s.repo.Semester.Update(ctx, semester); err != nil {
		s.logger.Error("更新学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 日期变更后必须重新推导激活态
	if datesChanged {
		if err := s.RefreshActive(ctx); err != nil {
			return nil, err
		}
		if semester, err = s.repo.Semester.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}

	return s.toSemesterResponse(semester), nil
}

// ────────────────────── Cancel ──────────────────────

func (s *semesterService) Cancel(ctx context.Context, id string, callerID string) error {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	semester.Status = model.SemesterStatusCancelled
	semester.IsActive = false
	semester.UpdatedBy = &callerID

	if err := s.repo.Semester.Update(ctx, semester); err != nil {
		s.logger.Error("取消学期失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── RefreshActive ──────────────────────

func (s *semesterService) RefreshActive(ctx context.Context) error {
	semesters, err := s.repo.Semester.List(ctx, repository.SemesterFilter{
		StatusNot: model.SemesterStatusCancelled,
	})
	if err != nil {
		s.logger.Error("查询学期列表失败", zap.Error(err))
		return err
	}
	if len(semesters) == 0 {
		return nil
	}

	today := s.clock.Now()
	derivation := DeriveActive(semesters, today)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
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

	flips := 0
	for i := range derivation.Semesters {
		derived := &derivation.Semesters[i]
		status := deriveStatus(derived, today, derived.IsActive)
		if derived.IsActive == semesters[i].IsActive && status == semesters[i].Status {
			continue
		}
		derived.Status = status
		if err := txRepo.Semester.Update(ctx, derived); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("持久化推导结果失败", zap.String("id", derived.SemesterID), zap.Error(err))
			return err
		}
		flips++
	}

	if derivation.HasCurrent {
		if err := txRepo.Semester.ClearActiveOutsideYear(ctx, derivation.ActiveYear); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("清除其他学年激活标记失败", zap.Error(err))
			return err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	if flips > 0 {
		s.logger.Info("学期激活态已重新推导",
			zap.Int("flips", flips),
			zap.Bool("has_current", derivation.HasCurrent),
		)
	}
	return nil
}

// ────────────────────── EnforceSingleActiveYear ──────────────────────

func (s *semesterService) EnforceSingleActiveYear(ctx context.Context, year int) error {
	if err := s.repo.Semester.ClearActiveOutsideYear(ctx, year); err != nil {
		s.logger.Error("清除其他学年激活标记失败", zap.Int("year", year), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *semesterService) buildSemester(year int, term *dto.SemesterTermRequest, callerID string) (*model.Semester, error) {
	start, err := time.Parse(dateLayout, term.StartDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	end, err := time.Parse(dateLayout, term.EndDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if _, err := interval.NewDateRange(start, end); err != nil {
		return nil, ErrSemesterDateInvalid
	}

	m := &model.Semester{
		Year:      year,
		Type:      term.Type,
		StartDate: start,
		EndDate:   end,
		Status:    model.SemesterStatusUpcoming,
		Notes:     term.Notes,
	}
	m.CreatedBy = &callerID
	m.UpdatedBy = &callerID

	if m.RegistrationStart, m.RegistrationEnd, err = s.applyOptionalRange(
		term.RegistrationStart, term.RegistrationEnd, nil, nil); err != nil {
		return nil, err
	}
	if m.EnrollmentStart, m.EnrollmentEnd, err = s.applyOptionalRange(
		term.EnrollmentStart, term.EnrollmentEnd, nil, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// applyOptionalRange 应用可选日期区间补丁并校验起止顺序
func (s *semesterService) applyOptionalRange(startPatch, endPatch *string, curStart, curEnd *time.Time) (*time.Time, *time.Time, error) {
	start, end := curStart, curEnd
	if startPatch != nil {
		t, err := time.Parse(dateLayout, *startPatch)
		if err != nil {
			return nil, nil, ErrSemesterDateInvalid
		}
		start = &t
	}
	if endPatch != nil {
		t, err := time.Parse(dateLayout, *endPatch)
		if err != nil {
			return nil, nil, ErrSemesterDateInvalid
		}
		end = &t
	}
	if start != nil && end != nil {
		if _, err := interval.NewDateRange(*start, *end); err != nil {
			return nil, nil, ErrSemesterDateInvalid
		}
	}
	return start, end, nil
}

func (s *semesterService) buildYearResponse(year int, derivation Derivation) *dto.AcademicYearResponse {
	resp := &dto.AcademicYearResponse{
		Year:        year,
		HasCurrent:  derivation.HasCurrent,
		WithinRange: derivation.WithinRange,
		IsActive:    derivation.HasCurrent || derivation.WithinRange,
		Semesters:   make([]dto.SemesterResponse, 0, len(derivation.Semesters)),
	}

	var minStart, maxEnd time.Time
	for i := range derivation.Semesters {
		sem := &derivation.Semesters[i]
		r := interval.DateRange{Start: sem.StartDate, End: sem.EndDate}
		if r.Valid() {
			if minStart.IsZero() || sem.StartDate.Before(minStart) {
				minStart = sem.StartDate
			}
			if maxEnd.IsZero() || sem.EndDate.After(maxEnd) {
				maxEnd = sem.EndDate
			}
		}
		resp.Semesters = append(resp.Semesters, *s.toSemesterResponse(sem))
	}
	if !minStart.IsZero() {
		resp.StartDate = minStart.Format(dateLayout)
		resp.EndDate = maxEnd.Format(dateLayout)
	}
	return resp
}

func (s *semesterService) toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	return &dto.SemesterResponse{
		ID:                semester.SemesterID,
		Year:              semester.Year,
		Type:              semester.Type,
		StartDate:         semester.StartDate.Format(dateLayout),
		EndDate:           semester.EndDate.Format(dateLayout),
		RegistrationStart: formatDatePtr(semester.RegistrationStart),
		RegistrationEnd:   formatDatePtr(semester.RegistrationEnd),
		EnrollmentStart:   formatDatePtr(semester.EnrollmentStart),
		EnrollmentEnd:     formatDatePtr(semester.EnrollmentEnd),
		IsActive:          semester.IsActive,
		Status:            semester.Status,
		Notes:             semester.Notes,
		CreatedAt:         semester.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:         semester.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
