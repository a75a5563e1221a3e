package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
)

// 批量导入的实体解析接口：先按 id、再按名称/编号解析。
// 科目与班级允许解析失败后创建；教室严格解析、从不自动创建。

// SubjectRepository 科目数据访问接口
type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	GetByID(ctx context.Context, id string) (*model.Subject, error)
	// GetByCodeOrName 大小写不敏感匹配编码或名称
	GetByCodeOrName(ctx context.Context, key string) (*model.Subject, error)
}

// SectionRepository 班级数据访问接口
type SectionRepository interface {
	Create(ctx context.Context, section *model.Section) error
	GetByID(ctx context.Context, id string) (*model.Section, error)
	// GetByName 大小写不敏感匹配名称
	GetByName(ctx context.Context, name string) (*model.Section, error)
}

// RoomRepository 教室数据访问接口
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*model.Room, error)
	// GetByNumber 精确匹配教室编号
	GetByNumber(ctx context.Context, number string) (*model.Room, error)
}

// InstructorRepository 教师数据访问接口
type InstructorRepository interface {
	GetByID(ctx context.Context, id string) (*model.Instructor, error)
	// GetByFullName 按姓+名精确匹配（大小写不敏感）
	GetByFullName(ctx context.Context, firstName, lastName string) (*model.Instructor, error)
}

// ── Subject ──

type subjectRepo struct {
	db *gorm.DB
}

// NewSubjectRepo 创建 SubjectRepository 实例
func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) Create(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *subjectRepo) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", id).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetByCodeOrName(ctx context.Context, key string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = LOWER(?) OR LOWER(name) = LOWER(?)", key, key).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// ── Section ──

type sectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo 创建 SectionRepository 实例
func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

func (r *sectionRepo) Create(ctx context.Context, section *model.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *sectionRepo) GetByID(ctx context.Context, id string) (*model.Section, error) {
	var section model.Section
	err := r.db.WithContext(ctx).
		Where("section_id = ?", id).
		First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepo) GetByName(ctx context.Context, name string) (*model.Section, error) {
	var section model.Section
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// ── Room ──

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("room_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetByNumber(ctx context.Context, number string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("room_number = ?", number).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ── Instructor ──

type instructorRepo struct {
	db *gorm.DB
}

// NewInstructorRepo 创建 InstructorRepository 实例
func NewInstructorRepo(db *gorm.DB) InstructorRepository {
	return &instructorRepo{db: db}
}

func (r *instructorRepo) GetByID(ctx context.Context, id string) (*model.Instructor, error) {
	var instructor model.Instructor
	err := r.db.WithContext(ctx).
		Where("instructor_id = ?", id).
		First(&instructor).Error
	if err != nil {
		return nil, err
	}
	return &instructor, nil
}

func (r *instructorRepo) GetByFullName(ctx context.Context, firstName, lastName string) (*model.Instructor, error) {
	var instructor model.Instructor
	err := r.db.WithContext(ctx).
		Where("LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?)", firstName, lastName).
		First(&instructor).Error
	if err != nil {
		return nil, err
	}
	return &instructor, nil
}
