// Package rbac resolves user IDs into immutable permission snapshots.
//
// # Data model
//
// A Matrix maps role names to Permissions (permission key to granted flag);
// the role set is the matrix key set. A Registry maps user IDs to User records
// holding a role, an optional client ID and an active flag. Permission keys are
// opaque dotted strings with no wildcard matching; absent keys are denied.
//
// # Stores
//
// PermissionStore and UserStore own the two documents and persist them through
// a backend.Backend. Persisted mutations (Grant, AddUser, ToggleActive) save a
// copy-on-write successor before swapping it in, then append exactly one audit
// record. A failed save returns ErrPersistence and leaves memory unchanged. A
// failed audit append is logged and counted but never fails the mutation.
//
// # Resolution
//
//	perms := rbac.NewPermissionStore(b, rbac.WithAuditLogger(auditLog))
//	users := rbac.NewUserStore(b, rbac.WithAuditLogger(auditLog))
//	resolver := rbac.NewResolver(perms, users)
//
//	uc, err := resolver.Resolve(ctx, "alice")
//	switch {
//	case errors.Is(err, rbac.ErrNotFound), errors.Is(err, rbac.ErrDeactivated):
//		// deny
//	case err == nil && uc.HasPermission("trader.view_portfolio"):
//		// allow
//	}
//
// WithObserver attaches a NarratingObserver or LogObserver to report each step.
// CachingResolver memoizes successful resolutions and purges on every store
// change announced through Subscribe.
package rbac
