package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/qs3c/folio_comments/internal/model"
)

const keyPrefix = "comments:"

// Key 评论列表缓存键
func Key(slug string) string {
	return keyPrefix + slug
}

type entry struct {
	rows      []model.Comment
	expiresAt time.Time
}

// ThreadCache 按 slug 缓存评论行和点赞数（与查看者无关的部分）。
// 每次 Delete 都会推进全局版本号并记下该 slug 的失效版本，读取前取得的旧版本不能再写回。
// 失效记录最多保留 size 条，被淘汰的记录并入 floor，之后所有早于 floor 的写入都会被拒绝。
type ThreadCache struct {
	lru *lru.Cache[string, entry]
	ttl time.Duration
	now func() time.Time

	mu          sync.Mutex
	epoch       uint64
	floor       uint64
	invalidated *lru.Cache[string, uint64]
}

// NewThreadCache 创建缓存，size 为最多缓存的 slug 数
func NewThreadCache(size int, ttl time.Duration) (*ThreadCache, error) {
	l, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}

	c := &ThreadCache{
		lru: l,
		ttl: ttl,
		now: time.Now,
	}
	// 只在持有 mu 时 Add，回调里不再加锁
	c.invalidated, err = lru.NewWithEvict[string, uint64](size, func(_ string, at uint64) {
		if at > c.floor {
			c.floor = at
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get 获取缓存副本，不存在或已过期返回 false
func (c *ThreadCache) Get(slug string) ([]model.Comment, bool) {
	if c == nil {
		return nil, false
	}

	key := Key(slug)
	val, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}

	if c.now().After(val.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}

	rows := make([]model.Comment, len(val.rows))
	copy(rows, val.rows)
	return rows, true
}

// Version 返回当前版本号，查询数据库前调用
func (c *ThreadCache) Version(slug string) uint64 {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// lastInvalidated 调用方需持有 mu
func (c *ThreadCache) lastInvalidated(slug string) uint64 {
	if at, ok := c.invalidated.Peek(slug); ok {
		return at
	}
	return c.floor
}

// Set 写入缓存；若读取期间发生过失效（版本已变化）则放弃写入
func (c *ThreadCache) Set(slug string, version uint64, rows []model.Comment) bool {
	if c == nil {
		return false
	}

	stored := make([]model.Comment, len(rows))
	copy(stored, rows)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastInvalidated(slug) > version {
		return false
	}
	c.lru.Add(Key(slug), entry{rows: stored, expiresAt: c.now().Add(c.ttl)})
	return true
}

// Delete 删除指定 slug 的缓存
func (c *ThreadCache) Delete(slug string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.invalidated.Add(slug, c.epoch)
	c.lru.Remove(Key(slug))
}

// Len 当前缓存条目数
func (c *ThreadCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
