package backend

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	b, err := NewRedisBackend(context.Background(), "redis://"+mr.Addr(), "permgate:")
	if err != nil {
		t.Fatalf("Failed to create redis backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	return b, mr
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	b, mr := setupRedisBackend(t)
	ctx := context.Background()

	in := testDoc{"trader": {"trader.view_portfolio": true}}
	require.NoError(t, b.Save(ctx, "RolePermissions.yaml", in))

	raw, err := mr.Get("permgate:RolePermissions.yaml")
	require.NoError(t, err)
	assert.Contains(t, raw, "trader.view_portfolio: true")

	var out testDoc
	found, err := b.Load(ctx, "RolePermissions.yaml", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestRedisBackend_MissingKey(t *testing.T) {
	b, _ := setupRedisBackend(t)

	var out testDoc
	found, err := b.Load(context.Background(), "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend_Malformed(t *testing.T) {
	b, mr := setupRedisBackend(t)
	require.NoError(t, mr.Set("permgate:bad", "admin: [oops"))

	var out testDoc
	_, err := b.Load(context.Background(), "bad", &out)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNewRedisBackend_InvalidURL(t *testing.T) {
	_, err := NewRedisBackend(context.Background(), "invalid://url", "")
	assert.Error(t, err)
}
