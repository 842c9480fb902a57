package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"

	"github.com/qs3c/folio_comments/internal/pkg/logger"
)

// OrphanSweepLockKey 多实例部署时每轮只有拿到锁的实例执行清理
const OrphanSweepLockKey = "comments:cron:orphan_sweep"

// OrphanSweeper 删除评论已不存在的点赞
type OrphanSweeper interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

type Service struct {
	reactions OrphanSweeper
	interval  time.Duration
	timeout   time.Duration
	locker    *redislock.Client
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewService(reactions OrphanSweeper, interval, timeout time.Duration) *Service {
	return &Service{
		reactions: reactions,
		interval:  interval,
		timeout:   timeout,
		stopChan:  make(chan struct{}),
	}
}

// WithLock 使用 Redis 锁协调多个实例，nil 表示不加锁
func (s *Service) WithLock(locker *redislock.Client) *Service {
	s.locker = locker
	return s
}

// Start 启动定时任务，interval <= 0 时不启动
func (s *Service) Start() {
	if s.interval <= 0 || s.reactions == nil {
		return
	}

	s.wg.Add(1)
	go s.runOrphanSweep()
	logger.Std().WithField("interval", s.interval.String()).Info("Cron service started (orphan reaction sweep)")
}

// Stop 停止定时任务并等待正在执行的清理结束
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runOrphanSweep 周期性清理孤立点赞
func (s *Service) runOrphanSweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Service) sweepOnce() int64 {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.locker != nil {
		// 锁不主动释放，TTL 内其他实例跳过本轮
		_, err := s.locker.Obtain(ctx, OrphanSweepLockKey, s.lockTTL(), nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.For(ctx).Debug("Orphan sweep held by another instance")
			return 0
		}
		if err != nil {
			logger.For(ctx).WithError(err).Warn("Failed to obtain orphan sweep lock")
			return 0
		}
	}

	deleted, err := s.reactions.DeleteOrphans(ctx)
	if err != nil {
		logger.For(ctx).WithError(err).Warn("Failed to sweep orphaned reactions")
		return 0
	}
	if deleted > 0 {
		logger.For(ctx).WithField("deleted", deleted).Info("Orphaned reactions removed")
	}
	return deleted
}

// lockTTL 比间隔略短，保证本实例下一轮能重新拿到锁
func (s *Service) lockTTL() time.Duration {
	if s.interval <= 0 {
		return time.Minute
	}
	return s.interval * 9 / 10
}
