package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/database"
	"github.com/qs3c/namma_kumta_server/internal/pkg/cron"
	"github.com/qs3c/namma_kumta_server/internal/pkg/email"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/pubsub"
	"github.com/qs3c/namma_kumta_server/internal/repository"
	"github.com/qs3c/namma_kumta_server/internal/service"
)

var (
	dryRun  = flag.Bool("dry-run", false, "Only count ads past their display window, don't expire them")
	timeout = flag.Duration("timeout", 5*time.Minute, "Abort the sweep after this long")
)

// 手动执行一次到期扫描，供外部调度（k8s CronJob 等）调用
func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Close()

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect database", err)
	}

	if *dryRun {
		adService := service.NewAdService(repository.NewAdvertisementRepository(db), nil, nil, cfg, zlog)
		due, err := adService.CountDue()
		if err != nil {
			zlog.Fatal("failed to count due advertisements", err)
		}
		printSummary(due, true)
		return
	}

	// 与 API 实例的定时扫描共用同一把锁，到期事件也经同一个频道推送
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = database.NewRedis(&cfg.Redis)
		if err != nil {
			zlog.Warn("redis unavailable, sweeping without lock", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var (
		publisher service.EventPublisher
		mailer    service.Mailer
	)
	if rdb != nil {
		publisher = pubsub.NewPublisher(rdb)
	}
	if mail := email.NewService(&cfg.Email); mail.Enabled() {
		mailer = mail
	}
	notifier := service.NewNotifier(publisher, mailer, repository.NewUserRepository(db), zlog)
	adService := service.NewAdService(repository.NewAdvertisementRepository(db), notifier, nil, cfg, zlog)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	expired, err := cron.NewService(adService, rdb, cfg.Sweep, zlog).RunNow(ctx)
	if err != nil {
		if errors.Is(err, cron.ErrLockHeld) {
			zlog.Info("another instance is sweeping, nothing to do")
			return
		}
		zlog.Fatal("expiry sweep failed", err)
	}
	printSummary(expired, false)
}

func printSummary(n int64, dry bool) {
	fmt.Println(strings.Repeat("=", 40))
	if dry {
		fmt.Printf("Due advertisements: %d\n", n)
		fmt.Println("DRY RUN - nothing was expired, run without -dry-run to apply")
	} else {
		fmt.Printf("Expired advertisements: %d\n", n)
	}
	fmt.Println(strings.Repeat("=", 40))
}
