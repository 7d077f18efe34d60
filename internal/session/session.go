// Package session keeps the conversation thread of each sender.
//
// A Session maps a sender identity to the agent thread it talks on, the
// assistant that thread was created for and the business it was last
// routed to. Entries expire after a TTL; MemoryStore serves a single
// process, RedisStore shares sessions between instances.
package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/teemow/agendabot/internal/cache"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

// DefaultMemorySize bounds the number of sessions kept in memory.
const DefaultMemorySize = 10000

// Session is the thread state of one sender.
type Session struct {
	Sender      string    `json:"sender"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	BusinessID  string    `json:"business_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists sessions by sender. Get returns nil, nil for an unknown or
// expired sender.
type Store interface {
	Get(ctx context.Context, sender string) (*Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, sender string) error
}

// MemoryStore is a size-bounded in-process Store with expiry.
type MemoryStore struct {
	lru *expirable.LRU[string, Session]
}

// NewMemoryStore returns a MemoryStore holding at most size sessions for ttl.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{lru: expirable.NewLRU[string, Session](size, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, sender string) (*Session, error) {
	s, ok := m.lru.Get(sender)
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	m.lru.Add(s.Sender, s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sender string) error {
	m.lru.Remove(sender)
	return nil
}

// Len returns the number of sessions held, including expired ones not yet
// evicted.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}

// RedisStore keeps sessions in Redis as JSON under "agendabot:session:".
type RedisStore struct {
	redis  *cache.Redis
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore whose entries expire after ttl.
func NewRedisStore(r *cache.Redis, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{redis: r, prefix: "agendabot:session:", ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, sender string) (*Session, error) {
	var s Session
	found, err := r.redis.GetJSON(ctx, r.prefix+sender, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	return r.redis.SetJSON(ctx, r.prefix+s.Sender, s, r.ttl)
}

func (r *RedisStore) Delete(ctx context.Context, sender string) error {
	return r.redis.Delete(ctx, r.prefix+sender)
}
