package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/rbac"
)

const testPermissions = `admin:
  admin.manage_users: true
  trader.view_portfolio: true
trader:
  trader.place_order: true
  trader.view_portfolio: true
auditor: {}
`

const testUsers = `alice:
  role: admin
  client_id: desk-1
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

// harness is a file backend rooted in a temp dir seeded with both documents
type harness struct {
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{dir: t.TempDir()}
	h.write(t, rbac.DefaultPermissionsDocument, testPermissions)
	h.write(t, rbac.DefaultUsersDocument, testUsers)
	return h
}

func (h *harness) write(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (h *harness) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	require.NoError(t, err)
	return string(data)
}

func (h *harness) auditPath() string {
	return filepath.Join(h.dir, "rbac.log")
}

func (h *harness) auditRecords(t *testing.T) []*audit.Record {
	t.Helper()
	records, err := audit.ReadFile(h.auditPath(), 0)
	require.NoError(t, err)
	return records
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return h.runContext(context.Background(), t, args...)
}

func (h *harness) runContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args,
		"--root", h.dir,
		"--audit-log", h.auditPath(),
		"--env-file", filepath.Join(h.dir, ".env"),
		"--cache-size", "0",
	))

	err := root.ExecuteContext(ctx)
	return out.String(), err
}
