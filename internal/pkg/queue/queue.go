package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMalformedJob 队列中的数据无法解析为任务
var ErrMalformedJob = errors.New("malformed revalidate job")

// RevalidateJob 页面重新验证任务
type RevalidateJob struct {
	Slug        string    `json:"slug"`
	Path        string    `json:"path"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewJob 创建重新验证任务，时间统一为 UTC
func NewJob(slug, path string, at time.Time) *RevalidateJob {
	return &RevalidateJob{Slug: slug, Path: path, RequestedAt: at.UTC()}
}

// Queue 基于 Redis 列表的先进先出队列，LPUSH 入队，BRPOP 出队
type Queue struct {
	client *redis.Client
	name   string
}

func NewQueue(client *redis.Client, name string) *Queue {
	return &Queue{client: client, name: name}
}

// Push 将任务加入队列
func (q *Queue) Push(ctx context.Context, job *RevalidateJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal revalidate job: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", q.name, err)
	}
	return nil
}

// Pop 阻塞获取任务，超时返回 nil, nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*RevalidateJob, error) {
	result, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop from %s: %w", q.name, err)
	}
	// BRPOP 返回 [key, value]
	if len(result) != 2 {
		return nil, nil
	}

	var job RevalidateJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	return &job, nil
}

// Length 当前排队的任务数
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}
