package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
)

// SemesterFilter 学期查询条件
type SemesterFilter struct {
	Year      *int
	StatusNot string
}

// SemesterRepository 学期数据访问接口
type SemesterRepository interface {
	Create(ctx context.Context, semester *model.Semester) error
	// BatchCreate 同学年兄弟学期成批创建
	BatchCreate(ctx context.Context, semesters []model.Semester) error
	GetByID(ctx context.Context, id string) (*model.Semester, error)
	// GetActive 返回当前激活学期
	GetActive(ctx context.Context) (*model.Semester, error)
	// GetLatest 返回最近创建的学期（导入兜底解析用）
	GetLatest(ctx context.Context) (*model.Semester, error)
	// List 按学年升序、开始日期升序返回（推导逻辑依赖此序）
	List(ctx context.Context, filter SemesterFilter) ([]model.Semester, error)
	Update(ctx context.Context, semester *model.Semester) error
	// ClearActiveOutsideYear 单活动学年不变式：清除指定学年之外所有学期的 is_active
	ClearActiveOutsideYear(ctx context.Context, year int) error
	// SetActive 单条设置 is_active
	SetActive(ctx context.Context, id string, active bool) error
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

func (r *semesterRepo) Create(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).Create(semester).Error
}

func (r *semesterRepo) BatchCreate(ctx context.Context, semesters []model.Semester) error {
	if len(semesters) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&semesters).Error
}

func (r *semesterRepo) GetByID(ctx context.Context, id string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", id).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetActive(ctx context.Context) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetLatest(ctx context.Context) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) List(ctx context.Context, filter SemesterFilter) ([]model.Semester, error) {
	db := r.db.WithContext(ctx)
	if filter.Year != nil {
		db = db.Where("year = ?", *filter.Year)
	}
	if filter.StatusNot != "" {
		db = db.Where("status != ?", filter.StatusNot)
	}
	var semesters []model.Semester
	err := db.Order("year ASC, start_date ASC").Find(&semesters).Error
	return semesters, err
}

func (r *semesterRepo) Update(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).Save(semester).Error
}

func (r *semesterRepo) ClearActiveOutsideYear(ctx context.Context, year int) error {
	return r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("year != ? AND is_active = ?", year, true).
		Update("is_active", false).Error
}

func (r *semesterRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("semester_id = ?", id).
		Update("is_active", active).Error
}
