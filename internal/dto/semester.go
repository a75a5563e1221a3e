package dto

// ── 学期/学年模块 DTO ──

// SemesterTermRequest 学年批量创建中的单个学期定义
type SemesterTermRequest struct {
	Type              string  `json:"type"               binding:"required,oneof=first second third"`
	StartDate         string  `json:"start_date"         binding:"required"` // "2024-08-01"
	EndDate           string  `json:"end_date"           binding:"required"` // "2024-12-15"
	RegistrationStart *string `json:"registration_start"`
	RegistrationEnd   *string `json:"registration_end"`
	EnrollmentStart   *string `json:"enrollment_start"`
	EnrollmentEnd     *string `json:"enrollment_end"`
	Notes             string  `json:"notes"              binding:"omitempty,max=500"`
}

// CreateAcademicYearRequest 创建学年（连同全部学期成批创建）
type CreateAcademicYearRequest struct {
	Year      int                   `json:"year"      binding:"required,min=2000,max=2100"`
	Semesters []SemesterTermRequest `json:"semesters" binding:"required,min=1,max=3,dive"`
}

// UpdateSemesterRequest 更新学期（日期变更后需重新推导）
type UpdateSemesterRequest struct {
	StartDate         *string `json:"start_date"`
	EndDate           *string `json:"end_date"`
	RegistrationStart *string `json:"registration_start"`
	RegistrationEnd   *string `json:"registration_end"`
	EnrollmentStart   *string `json:"enrollment_start"`
	EnrollmentEnd     *string `json:"enrollment_end"`
	Status            *string `json:"status" binding:"omitempty,oneof=upcoming current completed cancelled"`
	Notes             *string `json:"notes"  binding:"omitempty,max=500"`
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID                string  `json:"id"`
	Year              int     `json:"year"`
	Type              string  `json:"type"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	RegistrationStart *string `json:"registration_start,omitempty"`
	RegistrationEnd   *string `json:"registration_end,omitempty"`
	EnrollmentStart   *string `json:"enrollment_start,omitempty"`
	EnrollmentEnd     *string `json:"enrollment_end,omitempty"`
	IsActive          bool    `json:"is_active"`
	Status            string  `json:"status"`
	Notes             string  `json:"notes,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// AcademicYearResponse 学年视图（虚拟分组，非存储实体）
type AcademicYearResponse struct {
	Year        int                `json:"year"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	IsActive    bool               `json:"is_active"`
	HasCurrent  bool               `json:"has_current"`
	WithinRange bool               `json:"within_range"`
	Semesters   []SemesterResponse `json:"semesters"`
}
