package model

// Subject 科目表 — 对应 subjects
type Subject struct {
	SubjectID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code      string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	Units     int    `gorm:"type:smallint;not null;default:3"               json:"units"`
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }

// Section 班级/分班表 — 对应 sections
type Section struct {
	SectionID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"section_id"`
	Name       string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"name"`
	GradeLevel string `gorm:"type:varchar(20)"                               json:"grade_level,omitempty"`
	Capacity   int    `gorm:"type:smallint;not null;default:40"              json:"capacity"`
	BaseModel
}

// TableName 指定表名
func (Section) TableName() string { return "sections" }
