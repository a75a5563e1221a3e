package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ej-follero/icct-student-attendance-system-sub003/config"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/api/handler"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/api/router"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/jobs"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/repository"
	"github.com/ej-follero/icct-student-attendance-system-sub003/internal/service"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/database"
	applogger "github.com/ej-follero/icct-student-attendance-system-sub003/pkg/logger"
	"github.com/ej-follero/icct-student-attendance-system-sub003/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis
	// required=false 时连接失败仅降级：排期编辑互斥锁与导入速率限制不可用
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		if cfg.Redis.Required {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		logger.Warn("Redis 连接失败，排期编辑互斥锁降级为无锁模式", zap.Error(err))
		rdb = nil
	}

	// 5. 依赖注入: Repository → Service → Handler
	// locker 必须传 nil 接口而非 nil *redis.Client，Service 层以 == nil 判断降级
	repo := repository.NewRepository(db)
	var locker service.Locker
	if rdb != nil {
		locker = rdb
	}
	svc := service.NewService(repo, service.NewRepoNotifier(repo), locker, service.SystemClock{}, logger)
	h := handler.NewHandler(cfg, svc)

	// 6. 初始化路由
	engine := router.Setup(cfg, h, rdb, logger)

	// 7. 启动定时任务（学期激活态夜间重推导）
	runner, err := jobs.NewRunner(&cfg.Jobs, svc, logger)
	if err != nil {
		logger.Fatal("定时任务初始化失败", zap.Error(err))
	}
	runner.Start()

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	runner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
