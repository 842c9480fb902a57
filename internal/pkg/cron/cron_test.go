package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/folio_comments/internal/repository"
	"github.com/qs3c/folio_comments/internal/testutil"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) DeleteOrphans(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	return 1, c.err
}

func TestService_RunsPeriodically(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewService(sweeper, 10*time.Millisecond, time.Second)

	svc.Start()
	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	svc.Stop()

	calls := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, sweeper.calls.Load(), "no sweeps after Stop")
}

func TestService_DisabledInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	svc := NewService(sweeper, 0, time.Second)

	svc.Start()
	time.Sleep(20 * time.Millisecond)
	svc.Stop()

	assert.Equal(t, int32(0), sweeper.calls.Load())
}

func TestService_StopTwice(t *testing.T) {
	svc := NewService(&countingSweeper{}, time.Hour, time.Second)
	svc.Start()

	assert.NotPanics(t, func() {
		svc.Stop()
		svc.Stop()
	})
}

func TestService_SweepError(t *testing.T) {
	svc := NewService(&countingSweeper{err: errors.New("db down")}, time.Hour, time.Second)
	assert.Equal(t, int64(0), svc.sweepOnce())
}

func TestService_SweepOnce_Repository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	author := testutil.TestIdentity()
	comment := testutil.TestComment(t, db, author, "hello-world", "x")
	testutil.TestReaction(t, db, comment.ID, "u1")
	testutil.TestReaction(t, db, "gone", "u1")

	svc := NewService(repository.NewReactionRepository(db), time.Hour, time.Second)
	assert.Equal(t, int64(1), svc.sweepOnce())
	assert.Equal(t, int64(0), svc.sweepOnce())
}

func TestService_SweepOnce_Lock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	first := &countingSweeper{}
	second := &countingSweeper{}
	a := NewService(first, time.Hour, time.Second).WithLock(redislock.New(rdb))
	b := NewService(second, time.Hour, time.Second).WithLock(redislock.New(rdb))

	assert.Equal(t, int64(1), a.sweepOnce())
	assert.Equal(t, int64(0), b.sweepOnce())
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(0), second.calls.Load())

	// 锁过期后下一轮可以执行
	mr.FastForward(time.Hour)
	assert.Equal(t, int64(1), b.sweepOnce())
	assert.Equal(t, int32(1), second.calls.Load())
}

func TestService_SweepOnce_LockUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	sweeper := &countingSweeper{}
	svc := NewService(sweeper, time.Hour, time.Second).WithLock(redislock.New(rdb))

	assert.Equal(t, int64(0), svc.sweepOnce())
	assert.Equal(t, int32(0), sweeper.calls.Load())
}
