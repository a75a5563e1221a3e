package dto

// ── 批量导入模块 DTO ──

// RawScheduleRow 批量导入的原始行
// 来源系统的行为松散类型对象，这里收紧为显式可选字段 + 专门的解析/校验步骤；
// 科目/班级/教师/教室均支持 id 或名称二选一，学期可省略
type RawScheduleRow struct {
	SubjectID           string `json:"subject_id"`
	SubjectCode         string `json:"subject_code"`
	SubjectName         string `json:"subject_name"`
	SectionID           string `json:"section_id"`
	SectionName         string `json:"section_name"`
	InstructorID        string `json:"instructor_id"`
	InstructorFirstName string `json:"instructor_first_name"`
	InstructorLastName  string `json:"instructor_last_name"`
	RoomID              string `json:"room_id"`
	RoomNumber          string `json:"room_number"`
	DayOfWeek           string `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SemesterID          string `json:"semester_id"`
	MaxStudents         int    `json:"max_students"`
}

// BulkImportRequest 批量导入请求（JSON 形式）
type BulkImportRequest struct {
	Rows []RawScheduleRow `json:"rows" binding:"required,min=1,max=1000"`
}

// ImportResultResponse 批量导入结果
// 批次总是跑完：单行失败只累积错误，不中断其余行
type ImportResultResponse struct {
	SuccessCount int                `json:"success_count"`
	FailedCount  int                `json:"failed_count"`
	Errors       []string           `json:"errors"`
	Created      []ScheduleResponse `json:"created"`
}
