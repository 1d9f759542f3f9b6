package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	in := testDoc{"admin": {"admin.manage_users": true}}
	require.NoError(t, b.Save(ctx, "perms", in))

	// Mutating the saved value must not leak into the backend
	in["admin"]["admin.manage_users"] = false

	var out testDoc
	found, err := b.Load(ctx, "perms", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, out["admin"]["admin.manage_users"])
}

func TestMemoryBackend_FailSaves(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	boom := errors.New("disk full")

	require.NoError(t, b.Save(ctx, "perms", testDoc{"a": {"k": true}}))
	b.SetFailSaves(boom)
	assert.ErrorIs(t, b.Save(ctx, "perms", testDoc{}), boom)

	var out testDoc
	found, err := b.Load(ctx, "perms", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, testDoc{"a": {"k": true}}, out)

	b.SetFailSaves(nil)
	assert.NoError(t, b.Save(ctx, "perms", testDoc{}))
}

func TestMemoryBackend_PutRaw(t *testing.T) {
	b := NewMemoryBackend()
	b.Put("users", []byte("alice:\n  role: admin\n  active: true\n"))

	raw, ok := b.Raw("users")
	require.True(t, ok)
	assert.Contains(t, string(raw), "alice")

	_, ok = b.Raw("missing")
	assert.False(t, ok)
}
