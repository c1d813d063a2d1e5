package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imin-server/config"
	"imin-server/internal/handler"
	"imin-server/internal/model"
	"imin-server/internal/repository"
	"imin-server/internal/repository/memory"
	"imin-server/internal/service"
	"imin-server/pkg/clock"
	dbPkg "imin-server/pkg/db"
	"imin-server/pkg/jwt"
	"imin-server/pkg/logger"
	redisPkg "imin-server/pkg/redis"
	"imin-server/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	log.Info("=== I'm in 服务启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Database),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Duration("sweep_interval", cfg.Presence.SweepInterval),
		zap.String("log_level", cfg.Log.Level),
	)

	checks := map[string]func(context.Context) error{}

	// 3. 初始化存储
	stores, closeStores := openStores(cfg, log)
	defer closeStores()
	if cfg.Database.Driver != "memory" {
		checks["database"] = func(context.Context) error { return dbPkg.HealthCheck() }
	}

	// 3.1 过期调度索引（可选）
	var schedule service.ExpirySchedule
	if cfg.Redis.Enabled {
		client, err := redisPkg.InitRedis(cfg.Redis)
		if err != nil {
			log.Fatal("Redis连接失败", zap.Error(err))
		}
		defer func() {
			if err := redisPkg.Close(); err != nil {
				log.Error("关闭Redis连接失败", zap.Error(err))
			}
		}()
		schedule = redisPkg.NewExpiryIndex(client)
		checks["redis"] = redisPkg.HealthCheck
		log.Info("Redis连接成功，过期调度使用有序集合")
	}

	// 3.2 初始化业务服务
	loc, err := time.LoadLocation(cfg.Presence.Timezone)
	if err != nil {
		log.Warn("无效的时区配置，使用本地时区", zap.String("timezone", cfg.Presence.Timezone), zap.Error(err))
		loc = time.Local
	}
	clk := clock.Real()
	hub := websocket.NewManager()
	services := handler.Services{
		Users: service.NewUserService(stores, schedule, clk),
		Presence: service.NewPresenceService(stores, schedule, clk, service.PresenceOptions{
			DefaultAutoReset: model.AutoReset(cfg.Presence.DefaultAutoReset),
			TonightHour:      cfg.Presence.TonightHour,
			Location:         loc,
		}),
		Circles: service.NewCircleService(stores, clk),
		Friends: service.NewFriendService(stores, clk),
		Chat:    service.NewChatService(stores, hub, clk),
		Safety:  service.NewSafetyService(stores, clk),
	}

	// 3.3 启动过期扫描
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	sweeper := service.NewPresenceSweeper(stores, schedule, clk, cfg.Presence.SweepInterval, cfg.Presence.SweepBatch)
	go sweeper.Run(ctx)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := handler.NewRouter(handler.RouterOptions{
		JWT:              jwt.NewJWTService(cfg.JWT),
		Services:         services,
		Realtime:         websocket.NewHandler(hub, cfg.WebSocket).Serve,
		DefaultAutoReset: model.AutoReset(cfg.Presence.DefaultAutoReset),
		HealthChecks:     checks,
	})

	// 6. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 7. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 8. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// openStores 根据数据库驱动选择存储实现
func openStores(cfg *config.Config, log *zap.Logger) (*service.Stores, func()) {
	if cfg.Database.Driver == "memory" {
		log.Warn("使用内存存储，进程退出后数据丢失")
		st := memory.New()
		return &service.Stores{
			Users:    st.Users(),
			Circles:  st.Circles(),
			Requests: st.FriendRequests(),
			Presence: st.Presence(),
			Threads:  st.Threads(),
			Messages: st.Messages(),
			Blocks:   st.Blocks(),
			Reports:  st.Reports(),
		}, func() {}
	}

	db, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	log.Info("数据库连接成功")

	if err := dbPkg.AutoMigrate(model.All()...); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	return &service.Stores{
			Users:    repository.NewUserRepository(db),
			Circles:  repository.NewCircleRepository(db),
			Requests: repository.NewFriendRequestRepository(db),
			Presence: repository.NewPresenceRepository(db),
			Threads:  repository.NewThreadRepository(db),
			Messages: repository.NewMessageRepository(db),
			Blocks:   repository.NewBlockRepository(db),
			Reports:  repository.NewReportRepository(db),
		}, func() {
			if err := dbPkg.CloseDB(); err != nil {
				log.Error("关闭数据库连接失败", zap.Error(err))
			}
		}
}
