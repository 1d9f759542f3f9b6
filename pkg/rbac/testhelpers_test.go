package rbac

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/backend"
)

const fixturePermissions = `admin:
  admin.manage_users: true
  trader.view_portfolio: true
trader:
  trader.view_portfolio: false
  trader.place_order: true
auditor:
  auditor.view_audit_decisions: true
`

const fixtureUsers = `alice:
  role: admin
  client_id: desk-7
  active: true
bob:
  role: trader
  active: false
carol:
  role: ghost
  active: true
dave:
  role: trader
  active: true
`

var fixedTime = time.Date(2025, 6, 18, 12, 0, 1, 0, time.Local)

func fixedClock() time.Time { return fixedTime }

type fixture struct {
	backend *backend.MemoryBackend
	audit   *audit.MemoryLogger
	perms   *PermissionStore
	users   *UserStore
}

// newFixture loads both stores from an in-memory backend seeded with the
// fixture documents
func newFixture(t *testing.T, opts ...StoreOption) *fixture {
	t.Helper()

	b := backend.NewMemoryBackend()
	b.Put(DefaultPermissionsDocument, []byte(fixturePermissions))
	b.Put(DefaultUsersDocument, []byte(fixtureUsers))

	f := &fixture{backend: b, audit: audit.NewMemoryLogger()}
	opts = append([]StoreOption{WithAuditLogger(f.audit), WithClock(fixedClock)}, opts...)
	f.perms = NewPermissionStore(b, opts...)
	f.users = NewUserStore(b, opts...)

	ctx := context.Background()
	require.NoError(t, f.perms.Load(ctx))
	require.NoError(t, f.users.Load(ctx))
	return f
}

// newFileFixture writes the fixture documents under a temp dir and returns a
// file backend rooted there
func newFileFixture(t *testing.T) *backend.FileBackend {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPermissionsDocument), []byte(fixturePermissions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultUsersDocument), []byte(fixtureUsers), 0o644))
	return backend.NewFileBackend(dir)
}

type counter struct{ n int }

func (c *counter) inc() { c.n++ }
