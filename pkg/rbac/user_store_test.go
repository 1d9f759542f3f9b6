package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/backend"
)

func TestUserStore_Load(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, f.users.UserIDs())

	alice, ok := f.users.User("alice")
	require.True(t, ok)
	assert.Equal(t, "admin", alice.Role)
	require.NotNil(t, alice.ClientID)
	assert.Equal(t, "desk-7", *alice.ClientID)

	bob, ok := f.users.User("bob")
	require.True(t, ok)
	assert.Nil(t, bob.ClientID)

	assert.True(t, f.users.IsActive("alice"))
	assert.False(t, f.users.IsActive("bob"))
	assert.False(t, f.users.IsActive("nobody"))
}

func TestUserStore_LoadMissingDocument(t *testing.T) {
	s := NewUserStore(backend.NewMemoryBackend())
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.UserIDs())
}

func TestUserStore_AddUserInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.users.AddUser(ctx, "erin", "auditor", nil, true, "alice"))
	require.NoError(t, f.users.AddUser(ctx, "erin", "trader", StringPtr("desk-9"), false, "alice"))

	erin, ok := f.users.User("erin")
	require.True(t, ok)
	assert.Equal(t, "trader", erin.Role)
	assert.False(t, erin.Active)
	assert.Equal(t, "desk-9", *erin.ClientID)

	// Both the insert and the update are recorded as USER ADD
	assert.Equal(t, []string{
		"[2025-06-18 12:00:01] USER ADD: user=erin role=auditor client_id=null active=true operator=alice",
		"[2025-06-18 12:00:01] USER ADD: user=erin role=trader client_id=desk-9 active=false operator=alice",
	}, f.audit.Lines())

	fresh := NewUserStore(f.backend)
	require.NoError(t, fresh.Load(ctx))
	assert.Len(t, fresh.UserIDs(), 5, "other users are kept")
}

func TestUserStore_AddUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.users.AddUser(ctx, "", "admin", nil, true, "op"), ErrInvalidInput)
	assert.ErrorIs(t, f.users.AddUser(ctx, "frank", "", nil, true, "op"), ErrInvalidInput)
	assert.Empty(t, f.audit.Records())
}

func TestUserStore_AddUserDoesNotShareClientID(t *testing.T) {
	f := newFixture(t)
	client := "desk-1"
	require.NoError(t, f.users.AddUser(context.Background(), "erin", "trader", &client, true, "alice"))

	client = "changed"
	erin, _ := f.users.User("erin")
	assert.Equal(t, "desk-1", *erin.ClientID)

	*erin.ClientID = "mutated"
	again, _ := f.users.User("erin")
	assert.Equal(t, "desk-1", *again.ClientID)
}

func TestUserStore_ToggleActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.users.ToggleActive(ctx, "bob", true, "alice"))
	assert.True(t, f.users.IsActive("bob"))
	assert.Equal(t, []string{
		"[2025-06-18 12:00:01] USER STATUS TOGGLE: user=bob active=true operator=alice",
	}, f.audit.Lines())

	fresh := NewUserStore(f.backend)
	require.NoError(t, fresh.Load(ctx))
	assert.True(t, fresh.IsActive("bob"))
}

func TestUserStore_ToggleActiveUnknownUser(t *testing.T) {
	f := newFixture(t)
	notified := &counter{}
	f.users.Subscribe(notified.inc)

	// Even a failing backend is not touched for unknown users
	f.backend.SetFailSaves(errors.New("read-only"))

	require.NoError(t, f.users.ToggleActive(context.Background(), "nobody", true, "alice"))
	assert.Empty(t, f.audit.Records())
	assert.Equal(t, 0, notified.n)
	assert.Len(t, f.users.UserIDs(), 4)
}

func TestUserStore_PersistFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.SetFailSaves(errors.New("disk full"))
	ctx := context.Background()

	assert.ErrorIs(t, f.users.AddUser(ctx, "erin", "trader", nil, true, "alice"), ErrPersistence)
	assert.ErrorIs(t, f.users.ToggleActive(ctx, "bob", true, "alice"), ErrPersistence)

	_, ok := f.users.User("erin")
	assert.False(t, ok)
	assert.False(t, f.users.IsActive("bob"))
	assert.Empty(t, f.audit.Records())
}

func TestUserStore_AuditFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.audit.SetError(audit.ErrAuditWrite)

	require.NoError(t, f.users.ToggleActive(context.Background(), "bob", true, "alice"))
	assert.True(t, f.users.IsActive("bob"))
}

func TestUserStore_UsersIsDeepCopy(t *testing.T) {
	f := newFixture(t)

	users := f.users.Users()
	*users["alice"].ClientID = "mutated"
	delete(users, "bob")

	alice, _ := f.users.User("alice")
	assert.Equal(t, "desk-7", *alice.ClientID)
	_, ok := f.users.User("bob")
	assert.True(t, ok)
}

func TestUserStore_ImportAndSave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.users.Import(ctx, Registry{"zed": {Role: "admin", Active: true}}))
	assert.Equal(t, []string{"zed"}, f.users.UserIDs())
	assert.Empty(t, f.audit.Records())

	require.NoError(t, f.users.Save(ctx))
	fresh := NewUserStore(f.backend)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, []string{"zed"}, fresh.UserIDs())
}

func TestUserStore_CustomDocument(t *testing.T) {
	ctx := context.Background()
	b := backend.NewMemoryBackend()

	s := NewUserStore(b, WithDocument("users.yaml"))
	require.NoError(t, s.AddUser(ctx, "erin", "trader", nil, true, "alice"))

	_, ok := b.Raw("users.yaml")
	assert.True(t, ok)
	assert.Equal(t, "users.yaml", s.Document())
}
