package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendabot/internal/cache"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)

	got, err := store.Get(ctx, "5215550001234")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, Session{Sender: "5215550001234", ThreadID: "thread-1", AssistantID: "asst-1", BusinessID: "biz-1"}))
	got, err = store.Get(ctx, "5215550001234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "thread-1", got.ThreadID)

	require.NoError(t, store.Delete(ctx, "5215550001234"))
	got, err = store.Get(ctx, "5215550001234")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 20*time.Millisecond)
	require.NoError(t, store.Put(ctx, Session{Sender: "s", ThreadID: "t"}))

	assert.Eventually(t, func() bool {
		got, err := store.Get(ctx, "s")
		return err == nil && got == nil
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2, time.Hour)
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, Session{Sender: s}))
	}
	assert.Equal(t, 2, store.Len())
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewStoresApplyDefaults(t *testing.T) {
	assert.NotNil(t, NewMemoryStore(0, 0))

	r := cache.New(cache.Config{Addr: "127.0.0.1:1"}, nil)
	defer r.Close()
	rs := NewRedisStore(r, 0)
	assert.Equal(t, DefaultTTL, rs.ttl)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := rs.Get(ctx, "s")
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	r := cache.New(cache.Config{Addr: mr.Addr()}, nil)
	defer r.Close()

	ctx := context.Background()
	store := NewRedisStore(r, time.Minute)

	got, err := store.Get(ctx, "5215550001234")
	require.NoError(t, err)
	assert.Nil(t, got)

	updated := time.Date(2025, 5, 14, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, Session{
		Sender: "5215550001234", ThreadID: "thread-1", AssistantID: "asst-1", BusinessID: "biz-1", UpdatedAt: updated,
	}))
	assert.Equal(t, time.Minute, mr.TTL("agendabot:session:5215550001234"))

	got, err = store.Get(ctx, "5215550001234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, "asst-1", got.AssistantID)
	assert.Equal(t, "biz-1", got.BusinessID)
	assert.True(t, updated.Equal(got.UpdatedAt))

	require.NoError(t, store.Delete(ctx, "5215550001234"))
	got, err = store.Get(ctx, "5215550001234")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	r := cache.New(cache.Config{Addr: mr.Addr()}, nil)
	defer r.Close()

	ctx := context.Background()
	store := NewRedisStore(r, time.Minute)
	require.NoError(t, store.Put(ctx, Session{Sender: "a", ThreadID: "thread-1"}))

	mr.FastForward(59 * time.Second)
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)

	mr.FastForward(2 * time.Second)
	got, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}
