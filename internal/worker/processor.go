package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/pkg/queue"
	"github.com/qs3c/folio_comments/internal/pkg/revalidate"
)

var ErrEmptyJob = errors.New("revalidate job has neither path nor slug")

type jobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.RevalidateJob, error)
}

type pathRevalidator interface {
	Revalidate(ctx context.Context, path string) error
}

// Processor 重新验证任务处理器
type Processor struct {
	client  pathRevalidator
	timeout time.Duration
}

// NewProcessor 创建任务处理器
func NewProcessor(client pathRevalidator, timeout time.Duration) *Processor {
	return &Processor{client: client, timeout: timeout}
}

// Process 请求前端重新生成任务对应的页面，失败不重试
func (p *Processor) Process(ctx context.Context, job *queue.RevalidateJob) error {
	path := job.Path
	if path == "" {
		if job.Slug == "" {
			return ErrEmptyJob
		}
		path = revalidate.PathForSlug(job.Slug)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.client.Revalidate(ctx, path); err != nil {
		return fmt.Errorf("revalidate %s: %w", path, err)
	}
	return nil
}

// Pool 单个循环从队列取任务，交给固定大小的 workerpool 并发处理
type Pool struct {
	source     jobSource
	processor  *Processor
	workers    int
	popTimeout time.Duration
}

// NewPool 创建 worker 池
func NewPool(source jobSource, processor *Processor, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		source:     source,
		processor:  processor,
		workers:    workers,
		popTimeout: 5 * time.Second,
	}
}

// Run 阻塞直到 ctx 结束，已取出的任务全部处理完才返回
func (p *Pool) Run(ctx context.Context) {
	log := logger.For(ctx).WithField("workers", p.workers)
	wp := workerpool.New(p.workers)
	// 已出队的任务不随 ctx 取消，单个任务仍受 Processor 超时约束
	jobCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			log.WithField("pending", wp.WaitingQueueSize()).Info("Worker pool shutting down")
			wp.StopWait()
			return
		default:
		}

		// 等待队列积压时暂停出队，任务留在 Redis 中
		if wp.WaitingQueueSize() >= p.workers {
			sleepCtx(ctx, 50*time.Millisecond)
			continue
		}

		job, err := p.source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.WithError(err).Warn("Failed to pop job")
			// 队列不可用时避免空转
			sleepCtx(ctx, time.Second)
			continue
		}
		if job == nil {
			continue // 超时，继续等待
		}

		wp.Submit(func() {
			p.handle(jobCtx, job)
		})
	}
}

func (p *Pool) handle(ctx context.Context, job *queue.RevalidateJob) {
	entry := logger.For(ctx).WithFields(logrus.Fields{"slug": job.Slug, "path": job.Path})
	if err := p.processor.Process(ctx, job); err != nil {
		entry.WithError(err).Error("Revalidation failed")
		return
	}
	entry.WithField("queued_for", time.Since(job.RequestedAt).String()).Info("Page revalidated")
}

// sleepCtx 等待 d 或 ctx 结束
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
