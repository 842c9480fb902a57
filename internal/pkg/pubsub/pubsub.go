package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// InvalidationMessage 评论列表失效通知
type InvalidationMessage struct {
	Type   string `json:"type"`
	Slug   string `json:"slug"`
	Path   string `json:"path"`
	Origin string `json:"origin"` // 发出通知的实例
}

const MessageTypeInvalidate = "thread_invalidated"

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// PublishInvalidation 发布失效通知
func (p *Publisher) PublishInvalidation(ctx context.Context, msg *InvalidationMessage) error {
	msg.Type = MessageTypeInvalidate

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 订阅失效通知，阻塞直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*InvalidationMessage)) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// 等待订阅确认，避免之后发布的消息丢失
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", s.channel, err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var m InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				continue // 忽略解析错误
			}

			handler(&m)
		}
	}
}
