package model

// Instructor 教师表 — 对应 instructors
// RFID 卡号由考勤子系统使用，引擎仅读取姓名
type Instructor struct {
	InstructorID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"instructor_id"`
	FirstName    string `gorm:"type:varchar(50);not null"                      json:"first_name"`
	LastName     string `gorm:"type:varchar(50);not null"                      json:"last_name"`
	Email        string `gorm:"type:varchar(100)"                              json:"email,omitempty"`
	RfidTag      string `gorm:"type:varchar(50)"                               json:"rfid_tag,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Instructor) TableName() string { return "instructors" }

// FullName 姓名拼接，供通知与导入匹配使用
func (i *Instructor) FullName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	if i.LastName == "" {
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}
