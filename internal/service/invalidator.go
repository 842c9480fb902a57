package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/folio_comments/internal/pkg/logger"
	"github.com/qs3c/folio_comments/internal/pkg/pubsub"
	"github.com/qs3c/folio_comments/internal/pkg/queue"
	"github.com/qs3c/folio_comments/internal/pkg/revalidate"
)

// Invalidator 写操作成功后通知缓存失效
type Invalidator interface {
	Invalidate(ctx context.Context, slug string)
}

type threadEvictor interface {
	Delete(slug string)
}

type invalidationPublisher interface {
	PublishInvalidation(ctx context.Context, msg *pubsub.InvalidationMessage) error
}

type invalidationSubscriber interface {
	Subscribe(ctx context.Context, handler func(*pubsub.InvalidationMessage)) error
}

type revalidateQueue interface {
	Push(ctx context.Context, job *queue.RevalidateJob) error
}

// CacheInvalidator 清除本地评论缓存、通知其他实例、并投递页面重新验证任务。
// 三步互不依赖，任何一步失败都只记录日志。
type CacheInvalidator struct {
	cache      threadEvictor
	publisher  invalidationPublisher
	subscriber invalidationSubscriber
	queue      revalidateQueue
	instanceID string
	timeout    time.Duration
	now        func() time.Time
}

// NewCacheInvalidator 创建失效器，publisher/subscriber/queue 可以为 nil（单实例或未配置 Redis）
func NewCacheInvalidator(
	cache threadEvictor,
	publisher invalidationPublisher,
	subscriber invalidationSubscriber,
	queue revalidateQueue,
	timeout time.Duration,
) *CacheInvalidator {
	return &CacheInvalidator{
		cache:      cache,
		publisher:  publisher,
		subscriber: subscriber,
		queue:      queue,
		instanceID: uuid.NewString(),
		timeout:    timeout,
		now:        time.Now,
	}
}

// InstanceID 当前实例标识，用于忽略自己发出的通知
func (i *CacheInvalidator) InstanceID() string {
	return i.instanceID
}

// Invalidate 失效 slug 对应的评论缓存和页面，不返回错误
func (i *CacheInvalidator) Invalidate(ctx context.Context, slug string) {
	if err := i.invalidate(ctx, slug); err != nil {
		logger.For(ctx).WithFields(logrus.Fields{
			"slug": slug,
			"path": revalidate.PathForSlug(slug),
		}).WithError(err).Warn("comment cache invalidation incomplete")
	}
}

func (i *CacheInvalidator) invalidate(ctx context.Context, slug string) error {
	path := revalidate.PathForSlug(slug)

	if i.cache != nil {
		i.cache.Delete(slug)
	}

	// 请求可能已结束，失效操作使用独立的超时
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()

	var errs []error

	if i.publisher != nil {
		msg := &pubsub.InvalidationMessage{Slug: slug, Path: path, Origin: i.instanceID}
		if err := i.publisher.PublishInvalidation(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%w: publish %s: %w", ErrInvalidation, slug, err))
		}
	}

	if i.queue != nil {
		if err := i.queue.Push(ctx, queue.NewJob(slug, path, i.now())); err != nil {
			errs = append(errs, fmt.Errorf("%w: enqueue %s: %w", ErrInvalidation, path, err))
		}
	}

	return errors.Join(errs...)
}

// Listen 订阅其他实例的失效通知并清除本地缓存，阻塞直到 ctx 结束
func (i *CacheInvalidator) Listen(ctx context.Context) error {
	if i.subscriber == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	return i.subscriber.Subscribe(ctx, func(msg *pubsub.InvalidationMessage) {
		if msg.Origin == i.instanceID || msg.Slug == "" {
			return
		}
		if i.cache != nil {
			i.cache.Delete(msg.Slug)
		}
		logger.For(ctx).WithField("slug", msg.Slug).Debug("comment cache evicted by peer")
	})
}
