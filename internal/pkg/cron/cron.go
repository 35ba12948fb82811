package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/metrics"
)

const sweepLockKey = "lock:ad_expiry_sweep"

// ErrLockHeld 另一个实例正在执行扫描
var ErrLockHeld = errors.New("expiry sweep already running on another instance")

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Sweeper 执行一次到期扫描，返回下线数量
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

type Service struct {
	sweeper  Sweeper
	rdb      *redis.Client
	interval time.Duration
	lockTTL  time.Duration
	log      *logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewService rdb 为 nil 时不加分布式锁（单实例部署）
func NewService(sweeper Sweeper, rdb *redis.Client, cfg config.SweepConfig, log *logger.Logger) *Service {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	lockTTL := time.Duration(cfg.LockTTLSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Service{
		sweeper:  sweeper,
		rdb:      rdb,
		interval: interval,
		lockTTL:  lockTTL,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runExpirySweep()
	s.log.Info("cron service started", "task", "ad_expiry_sweep", "interval", s.interval.String())
}

// Stop 停止定时任务
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info("cron service stopped")
	})
}

// firstRun 首次执行时间：下一个 UTC 零点
func firstRun(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

// runExpirySweep 每日到期扫描，失败只记录日志，等下一次触发
func (s *Service) runExpirySweep() {
	now := time.Now()
	timer := time.NewTimer(firstRun(now).Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
			if _, err := s.RunNow(ctx); err != nil && !errors.Is(err, ErrLockHeld) {
				s.log.Error("expiry sweep failed, will retry next tick", err)
			}
			cancel()
			timer.Reset(s.interval)
		}
	}
}

// RunNow 立即执行一次扫描（定时触发、管理端和命令行共用）
func (s *Service) RunNow(ctx context.Context) (int64, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			metrics.SweepRuns.WithLabelValues(metrics.OutcomeSkipped).Inc()
			s.log.Info("expiry sweep skipped, lock held by another instance")
		} else {
			metrics.SweepRuns.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return 0, err
	}
	defer release()

	start := time.Now()
	expired, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues(metrics.OutcomeError).Inc()
		return 0, err
	}

	metrics.SweepRuns.WithLabelValues(metrics.OutcomeOK).Inc()
	metrics.ExpiredAds.Add(float64(expired))
	s.log.Info("expiry sweep completed", "expired", expired, "elapsed", time.Since(start))
	return expired, nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}

	token := uuid.New().String()
	ok, err := s.rdb.SetNX(ctx, sweepLockKey, token, s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func() {
		if err := releaseScript.Run(context.Background(), s.rdb, []string{sweepLockKey}, token).Err(); err != nil {
			s.log.Warn("failed to release sweep lock", err)
		}
	}, nil
}
