package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLockKeysCoverWindow(t *testing.T) {
	twoHours := slotLockKeys("biz", at(thursday, 10, 0), at(thursday, 12, 0))
	require.Len(t, twoHours, 2)

	assert.Equal(t, slotLockKeys("biz", at(thursday, 10, 0), at(thursday, 11, 0)), twoHours[:1])
	assert.Equal(t, twoHours, slotLockKeys("biz", at(thursday, 10, 0), at(thursday, 11, 30)))
	assert.Equal(t, twoHours, slotLockKeys("biz", at(thursday, 10, 30), at(thursday, 11, 30)))

	later := slotLockKeys("biz", at(thursday, 11, 0), at(thursday, 13, 0))
	assert.Equal(t, twoHours[1], later[0], "overlapping windows share a key")
	assert.IsIncreasing(t, later)

	assert.NotContains(t, slotLockKeys("biz", at(thursday, 9, 0), at(thursday, 10, 0)), twoHours[0])
	assert.NotEqual(t, twoHours, slotLockKeys("other", at(thursday, 10, 0), at(thursday, 12, 0)))
}

func TestLockWindowReleasesOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	held, err := f.engine.locker.Lock(ctx, slotLockKeys(testBusiness, at(thursday, 11, 0), at(thursday, 12, 0))[0])
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = f.engine.lockWindow(waitCtx, testBusiness, at(thursday, 10, 0), at(thursday, 12, 0))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	held()

	// The 10:00 key taken before the failure was released.
	unlock, err := f.engine.lockWindow(ctx, testBusiness, at(thursday, 10, 0), at(thursday, 11, 0))
	require.NoError(t, err)
	unlock()
}

func newTestRedisLocker(t *testing.T) (*RedisSlotLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisSlotLocker(client, time.Second)
	locker.retry = 5 * time.Millisecond
	return locker, mr
}

func TestRedisSlotLockerWaitsForUnlock(t *testing.T) {
	locker, mr := newTestRedisLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "biz|10")
	require.NoError(t, err)
	assert.True(t, mr.Exists(locker.prefix+"biz|10"))

	acquired := make(chan func(), 1)
	go func() {
		second, err := locker.Lock(ctx, "biz|10")
		if err != nil {
			close(acquired)
			return
		}
		acquired <- second
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned while the slot was held")
	case <-time.After(50 * time.Millisecond):
	}

	// Other keys are independent.
	other, err := locker.Lock(ctx, "biz|11")
	require.NoError(t, err)
	other()

	unlock()
	select {
	case second, ok := <-acquired:
		require.True(t, ok, "second Lock failed")
		second()
	case <-time.After(time.Second):
		t.Fatal("second Lock did not acquire after unlock")
	}
	assert.False(t, mr.Exists(locker.prefix+"biz|10"))
}

func TestRedisSlotLockerHonorsContext(t *testing.T) {
	locker, _ := newTestRedisLocker(t)

	unlock, err := locker.Lock(context.Background(), "biz|10")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "biz|10")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisSlotLockerStaleUnlockKeepsNewHolder(t *testing.T) {
	locker, mr := newTestRedisLocker(t)
	ctx := context.Background()
	key := locker.prefix + "biz|10"

	stale, err := locker.Lock(ctx, "biz|10")
	require.NoError(t, err)

	// The first holder outlives its TTL and someone else takes the slot.
	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists(key))
	current, err := locker.Lock(ctx, "biz|10")
	require.NoError(t, err)
	token, err := mr.Get(key)
	require.NoError(t, err)

	stale()
	got, err := mr.Get(key)
	require.NoError(t, err, "stale unlock must not delete the new holder's lock")
	assert.Equal(t, token, got)

	current()
	assert.False(t, mr.Exists(key))
}

func TestRedisSlotLockerReportsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	locker := NewRedisSlotLocker(client, 0)
	assert.Equal(t, 30*time.Second, locker.ttl)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := locker.Lock(ctx, "biz|slot")
	require.Error(t, err)
	assert.Nil(t, unlock)
}
