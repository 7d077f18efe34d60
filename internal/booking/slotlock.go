package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlotLocker serializes bookings that compete for the same slot.
// *keylock.Map is the in-process implementation.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// slotLockKeys returns one key per hour that [start, end) touches, in
// ascending order. Two overlapping windows always share a key.
func slotLockKeys(businessID string, start, end time.Time) []string {
	var keys []string
	for h := start.In(operatingLocation).Truncate(time.Hour); h.Before(end); h = h.Add(time.Hour) {
		keys = append(keys, businessID+"|"+h.Format(time.RFC3339))
	}
	return keys
}

// lockWindow holds every hour lock of [start, end). Keys are taken in
// ascending order so competing windows cannot deadlock.
func (e *Engine) lockWindow(ctx context.Context, businessID string, start, end time.Time) (func(), error) {
	keys := slotLockKeys(businessID, start, end)
	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := e.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisSlotLocker is a SlotLocker shared by every instance using the same
// Redis. Locks expire after TTL so a crashed holder cannot wedge a slot.
type RedisSlotLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisSlotLocker returns a locker storing keys under "agendabot:slot:".
func NewRedisSlotLocker(client redis.UniversalClient, ttl time.Duration) *RedisSlotLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSlotLocker{client: client, prefix: "agendabot:slot:", ttl: ttl, retry: 50 * time.Millisecond}
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (l *RedisSlotLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to acquire slot lock: %w", err)
		}
		if ok {
			return func() {
				// A fresh context: the caller's may already be canceled.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
