package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesConfig(t *testing.T) {
	r := New(Config{Addr: "127.0.0.1:6390", Password: "secret", DB: 3, UseTLS: true}, nil)
	defer r.Close()

	opts := r.Client().Options()
	assert.Equal(t, "127.0.0.1:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	require.NotNil(t, opts.TLSConfig)
}

func TestUnreachableRedisReturnsErrors(t *testing.T) {
	r := New(Config{Addr: "127.0.0.1:1"}, nil)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, r.Ping(ctx))
	assert.Error(t, r.SetJSON(ctx, "k", map[string]string{"a": "b"}, time.Minute))
	var dest map[string]string
	found, err := r.GetJSON(ctx, "k", &dest)
	assert.Error(t, err)
	assert.False(t, found)
}
