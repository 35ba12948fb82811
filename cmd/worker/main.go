package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/database"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/oss"
	"github.com/qs3c/namma_kumta_server/internal/pkg/queue"
	"github.com/qs3c/namma_kumta_server/internal/worker"
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
	zlog = zlog.With("component", "media_cleanup_worker")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", err)
	}
	defer rdb.Close()
	zlog.Info("redis connected")

	// 媒体清理依赖 OSS，未配置时无事可做
	ossClient, err := oss.NewClient(&cfg.OSS)
	if err != nil {
		zlog.Fatal("failed to init OSS client", err)
	}

	cleanupQueue := queue.NewQueue(rdb, cfg.Queue.MediaCleanupQueue)
	processor := worker.NewProcessor(ossClient, cleanupQueue, zlog)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		zlog.Info("received shutdown signal")
		cancel()
	}()

	workers := cfg.Queue.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	zlog.Info("worker started", "max_workers", workers, "queue", cfg.Queue.MediaCleanupQueue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					zlog.Debug("worker shutting down", "worker_id", workerID)
					return
				default:
					msg, err := cleanupQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						zlog.Warn("failed to pop cleanup message", err, "worker_id", workerID)
						continue
					}
					if msg == nil {
						continue // 超时，继续等待
					}

					if err := processor.Process(ctx, msg); err != nil {
						zlog.Warn("media cleanup incomplete", err,
							"worker_id", workerID, "ad_id", msg.AdvertisementID, "attempt", msg.Attempt)
					}
				}
			}
		}(i)
	}

	wg.Wait()
	zlog.Info("worker shutdown complete")
}
