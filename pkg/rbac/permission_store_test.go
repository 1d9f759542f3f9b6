package rbac

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/backend"
	"github.com/platinummonkey/permgate/pkg/observability"
)

func TestPermissionStore_Load(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{"admin", "auditor", "trader"}, f.perms.Roles())
	assert.True(t, f.perms.HasRole("trader"))
	assert.False(t, f.perms.HasRole("ghost"))
	assert.Equal(t, Permissions{"trader.view_portfolio": false, "trader.place_order": true}, f.perms.RolePermissions("trader"))
	assert.Equal(t, []string{
		"admin.manage_users",
		"auditor.view_audit_decisions",
		"trader.place_order",
		"trader.view_portfolio",
	}, f.perms.AllPermissionKeys())
}

func TestPermissionStore_LoadMissingDocument(t *testing.T) {
	s := NewPermissionStore(backend.NewMemoryBackend())
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.Roles())
	assert.Empty(t, s.RolePermissions("admin"))
}

func TestPermissionStore_LoadCorruptKeepsState(t *testing.T) {
	f := newFixture(t)
	f.backend.Put(DefaultPermissionsDocument, []byte("admin: [unclosed"))

	err := f.perms.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, backend.ErrDecode)
	assert.True(t, f.perms.HasPermission("admin", "admin.manage_users"))
}

func TestPermissionStore_HasPermissionIsTotal(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.perms.HasPermission("trader", "trader.place_order"))
	assert.False(t, f.perms.HasPermission("trader", "trader.view_portfolio"))
	assert.False(t, f.perms.HasPermission("trader", "no.such.key"))
	assert.False(t, f.perms.HasPermission("ghost", "trader.place_order"))
}

func TestPermissionStore_RolePermissionsIsACopy(t *testing.T) {
	f := newFixture(t)

	perms := f.perms.RolePermissions("admin")
	perms["admin.manage_users"] = false
	perms["injected"] = true

	assert.True(t, f.perms.HasPermission("admin", "admin.manage_users"))
	assert.False(t, f.perms.HasPermission("admin", "injected"))
}

func TestPermissionStore_GrantSurvivesReload(t *testing.T) {
	ctx := context.Background()
	b := newFileFixture(t)

	s := NewPermissionStore(b)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Grant(ctx, "trader", "trader.view_portfolio", true, "admin1"))
	assert.True(t, s.RolePermissions("trader")["trader.view_portfolio"])

	require.NoError(t, s.Reload(ctx))
	assert.True(t, s.RolePermissions("trader")["trader.view_portfolio"])

	fresh := NewPermissionStore(b)
	require.NoError(t, fresh.Load(ctx))
	assert.True(t, fresh.HasPermission("trader", "trader.view_portfolio"))
	assert.True(t, fresh.HasPermission("admin", "admin.manage_users"), "other roles are kept")
}

func TestPermissionStore_GrantCreatesRole(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.perms.Grant(context.Background(), "risker", "risker.view_limits", true, "alice"))

	assert.True(t, f.perms.HasRole("risker"))
	assert.Len(t, f.perms.Roles(), 4)
}

func TestPermissionStore_GrantAudits(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.perms.Grant(context.Background(), "trader", "trader.view_portfolio", true, "admin1"))

	assert.Equal(t, []string{
		"[2025-06-18 12:00:01] PERMISSION CHANGE: role=trader key=trader.view_portfolio value=true operator=admin1",
	}, f.audit.Lines())
}

func TestPermissionStore_GrantValidation(t *testing.T) {
	f := newFixture(t)

	err := f.perms.Grant(context.Background(), "", "k", true, "op")
	assert.ErrorIs(t, err, ErrInvalidInput)
	err = f.perms.Grant(context.Background(), "trader", "", true, "op")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.audit.Records())
}

func TestPermissionStore_PersistFailureLeavesStateUnchanged(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	f := newFixture(t, WithMetrics(metrics))

	notified := &counter{}
	f.perms.Subscribe(notified.inc)

	boom := errors.New("disk full")
	f.backend.SetFailSaves(boom)

	err := f.perms.Grant(context.Background(), "trader", "trader.view_portfolio", true, "admin1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, boom)

	assert.False(t, f.perms.HasPermission("trader", "trader.view_portfolio"))
	assert.Empty(t, f.audit.Records(), "failed persists are not audited")
	assert.Equal(t, 0, notified.n)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MutationsTotal.WithLabelValues("grant", "error")))
}

func TestPermissionStore_AuditFailureIsNonFatal(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	f := newFixture(t, WithMetrics(metrics))
	f.audit.SetError(fmt.Errorf("%w: disk full", audit.ErrAuditWrite))

	err := f.perms.Grant(context.Background(), "trader", "trader.view_portfolio", true, "admin1")
	require.NoError(t, err)

	assert.True(t, f.perms.HasPermission("trader", "trader.view_portfolio"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuditWriteFailuresTotal))
}

func TestPermissionStore_FailureLogsCarryTraceContext(t *testing.T) {
	logger, hook := test.NewNullLogger()
	f := newFixture(t, WithLogger(logger))

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "grant")
	defer span.End()
	traceID := span.SpanContext().TraceID().String()

	f.audit.SetError(fmt.Errorf("%w: disk full", audit.ErrAuditWrite))
	require.NoError(t, f.perms.Grant(ctx, "trader", "trader.view_portfolio", true, "admin1"))

	var entry *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Failed to write audit record" {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, traceID, entry.Data["trace_id"])
	assert.NotEmpty(t, entry.Data["span_id"])

	f.backend.SetFailSaves(errors.New("disk full"))
	require.Error(t, f.perms.Grant(ctx, "trader", "trader.cancel_order", true, "admin1"))
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Failed to persist permission matrix", entry.Message)
	assert.Equal(t, traceID, entry.Data["trace_id"])

	require.Error(t, f.users.ToggleActive(ctx, "dave", false, "admin1"))
	entry = hook.LastEntry()
	assert.Equal(t, "Failed to persist user registry", entry.Message)
	assert.Equal(t, traceID, entry.Data["trace_id"])

	hook.Reset()
	require.Error(t, f.perms.Grant(context.Background(), "trader", "x", true, "admin1"))
	_, ok := hook.LastEntry().Data["trace_id"]
	assert.False(t, ok)
}

func TestPermissionStore_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	original := f.perms.Export()
	require.NoError(t, f.perms.Import(ctx, f.perms.Export()))
	assert.Equal(t, original, f.perms.Export())
	assert.Empty(t, f.audit.Records(), "imports are not audited")

	// Export is a deep copy
	original["admin"]["admin.manage_users"] = false
	assert.True(t, f.perms.HasPermission("admin", "admin.manage_users"))
}

func TestPermissionStore_ImportReplacesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.perms.Import(ctx, Matrix{"viewer": {"reports.read": true}}))
	assert.Equal(t, []string{"viewer"}, f.perms.Roles())

	fresh := NewPermissionStore(f.backend)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, Matrix{"viewer": {"reports.read": true}}, fresh.Export())
}

func TestPermissionStore_ImportPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.SetFailSaves(errors.New("read-only"))

	err := f.perms.Import(context.Background(), Matrix{})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, f.perms.Roles(), 3)
}

func TestPermissionStore_ConcurrentGrantsToDifferentRoles(t *testing.T) {
	ctx := context.Background()
	b := newFileFixture(t)
	s := NewPermissionStore(b)
	require.NoError(t, s.Load(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := fmt.Sprintf("role-%02d", i)
			assert.NoError(t, s.Grant(ctx, role, "k", true, "op"))
		}(i)
	}
	wg.Wait()

	fresh := NewPermissionStore(b)
	require.NoError(t, fresh.Load(ctx))
	for i := 0; i < 20; i++ {
		assert.True(t, fresh.HasPermission(fmt.Sprintf("role-%02d", i), "k"))
	}
	assert.Len(t, fresh.Roles(), 23)
}

func TestPermissionStore_InMemorySetters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	notified := &counter{}
	f.perms.Subscribe(notified.inc)

	f.perms.SetRolePermissions("viewer", Permissions{"reports.read": true})
	f.perms.UpdatePermission("viewer", "reports.export", true)
	f.perms.UpdatePermission("newrole", "x", false)
	f.perms.DeletePermission("viewer", "reports.read")
	f.perms.DeletePermission("viewer", "missing")
	f.perms.DeletePermission("nobody", "x")

	assert.Equal(t, Permissions{"reports.export": true}, f.perms.RolePermissions("viewer"))
	assert.True(t, f.perms.HasRole("newrole"))
	assert.Equal(t, 4, notified.n, "no-op deletes do not notify")
	assert.Empty(t, f.audit.Records())

	// Not persisted until Save
	fresh := NewPermissionStore(f.backend)
	require.NoError(t, fresh.Load(ctx))
	assert.False(t, fresh.HasRole("viewer"))

	require.NoError(t, f.perms.Save(ctx))
	require.NoError(t, fresh.Load(ctx))
	assert.True(t, fresh.HasPermission("viewer", "reports.export"))
}
