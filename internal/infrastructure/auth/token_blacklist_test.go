package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cashflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryTokenBlacklist_AddToBlacklist(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-1", time.Hour))

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_Expiration(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	blacklist.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "short", time.Minute))
	require.NoError(t, blacklist.AddToBlacklist(ctx, "long", time.Hour))
	assert.Equal(t, 2, blacklist.Len())

	now = now.Add(2 * time.Minute)

	revoked, err := blacklist.IsBlacklisted(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = blacklist.IsBlacklisted(ctx, "long")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1, blacklist.Len())
}

func TestInMemoryTokenBlacklist_IgnoresExpiredTokens(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()

	require.NoError(t, blacklist.AddToBlacklist(context.Background(), "gone", 0))

	assert.Equal(t, 0, blacklist.Len())
}

func TestNewTokenBlacklist(t *testing.T) {
	t.Run("disabled redis uses memory", func(t *testing.T) {
		blacklist := NewTokenBlacklist(context.Background(), config.RedisConfig{Enabled: false}, nil)
		assert.IsType(t, &InMemoryTokenBlacklist{}, blacklist)
	})

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, recorded := observer.New(zapcore.WarnLevel)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// Port 1 is never a Redis server.
		blacklist := NewTokenBlacklist(ctx, config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}, zap.New(core))

		assert.IsType(t, &InMemoryTokenBlacklist{}, blacklist)
		assert.Equal(t, 1, recorded.Len())
	})
}

func TestRedisTokenBlacklist_Interface(t *testing.T) {
	var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)
}
