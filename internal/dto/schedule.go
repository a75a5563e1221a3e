package dto

// ── 排课模块 DTO ──

// CreateScheduleRequest 创建课程排期请求
type CreateScheduleRequest struct {
	SubjectID    string  `json:"subject_id"    binding:"required,uuid"`
	SectionID    string  `json:"section_id"    binding:"required,uuid"`
	InstructorID *string `json:"instructor_id" binding:"omitempty,uuid"` // 允许暂未排定教师
	RoomID       string  `json:"room_id"       binding:"required,uuid"`
	DayOfWeek    string  `json:"day_of_week"   binding:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime    string  `json:"start_time"    binding:"required"` // "HH:MM"
	EndTime      string  `json:"end_time"      binding:"required"` // "HH:MM"
	SemesterID   string  `json:"semester_id"   binding:"omitempty,uuid"` // 缺省取当前激活学期
	MaxStudents  int     `json:"max_students"  binding:"omitempty,min=1,max=500"`
}

// UpdateScheduleRequest 编辑课程排期请求（冲突仅提示，不阻断保存）
type UpdateScheduleRequest struct {
	SubjectID    *string `json:"subject_id"    binding:"omitempty,uuid"`
	SectionID    *string `json:"section_id"    binding:"omitempty,uuid"`
	InstructorID *string `json:"instructor_id" binding:"omitempty,uuid"`
	RoomID       *string `json:"room_id"       binding:"omitempty,uuid"`
	DayOfWeek    *string `json:"day_of_week"   binding:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	MaxStudents  *int    `json:"max_students"  binding:"omitempty,min=1,max=500"`
}

// TransitionScheduleRequest 状态流转请求
type TransitionScheduleRequest struct {
	Status string `json:"status" binding:"required,oneof=active cancelled postponed completed conflict"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// CapacityCheckRequest 容量检查请求（选课人数来自外部选课模块）
type CapacityCheckRequest struct {
	EnrolledCount int `json:"enrolled_count" binding:"required,min=0"`
}

// CapacityCheckResponse 容量检查结果（超员只告警，不阻断）
type CapacityCheckResponse struct {
	ScheduleID    string `json:"schedule_id"`
	MaxStudents   int    `json:"max_students"`
	EnrolledCount int    `json:"enrolled_count"`
	Available     int    `json:"available"`
	Exceeded      bool   `json:"exceeded"`
}

// ScheduleResponse 课程排期响应
type ScheduleResponse struct {
	ID          string           `json:"id"`
	Subject     *SubjectBrief    `json:"subject,omitempty"`
	Section     *SectionBrief    `json:"section,omitempty"`
	Instructor  *InstructorBrief `json:"instructor,omitempty"`
	Room        *RoomBrief       `json:"room,omitempty"`
	SemesterID  string           `json:"semester_id"`
	DayOfWeek   string           `json:"day_of_week"`
	StartTime   string           `json:"start_time"`
	EndTime     string           `json:"end_time"`
	Status      string           `json:"status"`
	MaxStudents int              `json:"max_students"`
	DeletedAt   *string          `json:"deleted_at,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// ConflictReportResponse 冲突检测报告（瞬态，不落库）
type ConflictReportResponse struct {
	HasConflict bool               `json:"has_conflict"`
	Reason      string             `json:"reason,omitempty"` // room | instructor | both
	Collisions  []ScheduleResponse `json:"collisions"`
}

// ScheduleListRequest 课程排期列表查询参数
type ScheduleListRequest struct {
	SemesterID      string `form:"semester_id"      binding:"omitempty,uuid"`
	SectionID       string `form:"section_id"       binding:"omitempty,uuid"`
	RoomID          string `form:"room_id"          binding:"omitempty,uuid"`
	InstructorID    string `form:"instructor_id"    binding:"omitempty,uuid"`
	DayOfWeek       string `form:"day_of_week"      binding:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	IncludeArchived bool   `form:"include_archived"`
}
