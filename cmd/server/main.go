package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/api"
	"github.com/qs3c/namma_kumta_server/internal/api/handler"
	"github.com/qs3c/namma_kumta_server/internal/database"
	"github.com/qs3c/namma_kumta_server/internal/pkg/cron"
	"github.com/qs3c/namma_kumta_server/internal/pkg/email"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/oss"
	"github.com/qs3c/namma_kumta_server/internal/pkg/payment"
	"github.com/qs3c/namma_kumta_server/internal/pkg/pubsub"
	"github.com/qs3c/namma_kumta_server/internal/pkg/queue"
	"github.com/qs3c/namma_kumta_server/internal/pkg/ws"
	"github.com/qs3c/namma_kumta_server/internal/repository"
	"github.com/qs3c/namma_kumta_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Close()

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect database", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("failed to migrate database", err)
	}
	zlog.Info("database connected")

	// 初始化 Redis（可选，缺失时不推送事件、不加扫描锁、媒体同步清理）
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			zlog.Warn("redis unavailable, running without queue and pub/sub", err)
			rdb = nil
		} else {
			zlog.Info("redis connected")
		}
	}

	// 初始化 OSS（可选）
	var storage service.ObjectStorage
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zlog.Warn("failed to init OSS client, media upload disabled", err)
		} else {
			storage = ossClient
			zlog.Info("OSS client initialized")
		}
	}

	// 接口参数保持真正的 nil，避免 typed nil
	var (
		publisher    service.EventPublisher
		cleanupQueue service.CleanupQueue
		mailer       service.Mailer
	)
	if rdb != nil {
		publisher = pubsub.NewPublisher(rdb)
		cleanupQueue = queue.NewQueue(rdb, cfg.Queue.MediaCleanupQueue)
	}
	if mail := email.NewService(&cfg.Email); mail.Enabled() {
		mailer = mail
	}

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub(zlog)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	adRepo := repository.NewAdvertisementRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, cfg)
	notifier := service.NewNotifier(publisher, mailer, userRepo, zlog)
	mediaService := service.NewMediaService(storage, cleanupQueue, cfg.Upload, zlog)
	adService := service.NewAdService(adRepo, notifier, mediaService, cfg, zlog)
	paymentService := service.NewPaymentService(paymentRepo, adRepo, adService, payment.NewGateway(cfg.Payment), cfg, zlog)

	// 定时任务
	cronService := cron.NewService(adService, rdb, cfg.Sweep, zlog)
	if cfg.Sweep.Enabled {
		cronService.Start()
		defer cronService.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 广告事件经 Redis 转发给在线的广告主，多实例部署时每个实例都会收到
	if rdb != nil {
		go relayAdEvents(ctx, pubsub.NewSubscriber(rdb), wsHub, zlog)
	}

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	adHandler := handler.NewAdHandler(adService, paymentService)
	adminHandler := handler.NewAdminHandler(adService, cronService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	mediaHandler := handler.NewMediaHandler(mediaService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, zlog)
	healthHandler := handler.NewHealthHandler(db, rdb)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		adHandler,
		adminHandler,
		paymentHandler,
		mediaHandler,
		websocketHandler,
		healthHandler,
		cfg,
		zlog,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zlog.Info("received shutdown signal")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", err)
	}
	if rdb != nil {
		rdb.Close()
	}
	zlog.Info("server stopped")
}

// relayAdEvents 订阅断开后按固定间隔重连，直到 ctx 结束
func relayAdEvents(ctx context.Context, sub *pubsub.Subscriber, hub *ws.Hub, zlog *logger.Logger) {
	for {
		err := sub.Subscribe(ctx, func(ev *pubsub.AdEventMessage) {
			if err := hub.SendToUser(ev.UserID, &ws.Message{Type: ev.Type, Data: ev}); err != nil {
				zlog.Warn("failed to push ad event", err, "user_id", ev.UserID)
			}
		})
		if ctx.Err() != nil {
			return
		}
		zlog.Warn("ad event subscription dropped, reconnecting", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}
