package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/rickchristie/agentloops/store/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test", 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "run-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:run-1"))
	assert.Equal(t, 5*time.Second, mr.TTL("test:lock:run-1"))

	unlock()
	assert.False(t, mr.Exists("test:lock:run-1"))

	// Unlocking twice leaves someone else's lock alone.
	again, err := locker.Lock(context.Background(), "run-1")
	require.NoError(t, err)
	unlock()
	assert.True(t, mr.Exists("test:lock:run-1"))
	again()
}

func TestLocker_Contention(t *testing.T) {
	_, client := setup(t)
	first := redis.NewLocker(client, "test", 5*time.Second)
	second := redis.NewLocker(client, "test", 5*time.Second)

	unlock, err := first.Lock(context.Background(), "shared")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx, "shared")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	released := make(chan struct{})
	go func() {
		time.Sleep(100 * time.Millisecond)
		unlock()
		close(released)
	}()

	unlock2, err := second.Lock(context.Background(), "shared")
	require.NoError(t, err)
	<-released
	unlock2()
}

func TestLocker_ExpiredHolder(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test", time.Second)

	_, err := locker.Lock(context.Background(), "crashed")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := locker.Lock(ctx, "crashed")
	require.NoError(t, err)
	unlock()
}

func TestLocker_RenewsWhileHeld(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test", 300*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "long-run")
	require.NoError(t, err)
	mr.FastForward(250 * time.Millisecond)

	require.Eventually(t, func() bool {
		return mr.TTL("test:lock:long-run") > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	mr.FastForward(250 * time.Millisecond)
	assert.True(t, mr.Exists("test:lock:long-run"))

	unlock()
	assert.False(t, mr.Exists("test:lock:long-run"))
}
