// Package admin exposes the store mutation path to callers holding the
// admin.manage_users permission.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/rbac"
)

// ErrNotAuthorized is returned by Open when the context lacks the admin
// permission
var ErrNotAuthorized = errors.New("admin: not authorized")

// PermissionManager is the permission side of the mutation path
type PermissionManager interface {
	Grant(ctx context.Context, role, key string, value bool, operator string) error
	Role(name string) (rbac.Permissions, bool)
	Roles() []string
	Reload(ctx context.Context) error
}

// UserManager is the user side of the mutation path
type UserManager interface {
	AddUser(ctx context.Context, id, role string, clientID *string, active bool, operator string) error
	ToggleActive(ctx context.Context, id string, active bool, operator string) error
	User(id string) (rbac.User, bool)
	Users() rbac.Registry
	Reload(ctx context.Context) error
}

// Reloader reloads every store
type Reloader interface {
	ReloadAll(ctx context.Context) error
}

// AuditReader returns the most recent audit records
type AuditReader interface {
	ReadRecords(count int) ([]*audit.Record, error)
}

// Option configures a Console
type Option func(*Console)

// WithAuditReader enables AuditTrail
func WithAuditReader(r AuditReader) Option {
	return func(c *Console) { c.auditReader = r }
}

// Console is a handle to the mutation path. It can only be obtained through
// Open with an authorized UserContext, and every mutation it performs is
// attributed to that context's user.
type Console struct {
	operator    string
	perms       PermissionManager
	users       UserManager
	reloader    Reloader
	auditReader AuditReader
}

// Open grants a Console to uc if it holds rbac.AdminPermission. reloader may be
// nil, in which case Reload reloads the two stores one after the other.
func Open(uc *rbac.UserContext, perms PermissionManager, users UserManager, reloader Reloader, opts ...Option) (*Console, error) {
	if uc == nil || !uc.HasPermission(rbac.AdminPermission) {
		return nil, ErrNotAuthorized
	}

	c := &Console{
		operator: uc.UserID(),
		perms:    perms,
		users:    users,
		reloader: reloader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Operator returns the identity recorded on every mutation
func (c *Console) Operator() string { return c.operator }

// Grant sets a permission on a role
func (c *Console) Grant(ctx context.Context, role, key string, value bool) error {
	return c.perms.Grant(ctx, role, key, value, c.operator)
}

// AddUser creates or replaces a user
func (c *Console) AddUser(ctx context.Context, id, role string, clientID *string, active bool) error {
	return c.users.AddUser(ctx, id, role, clientID, active, c.operator)
}

// SetActive activates or deactivates a user. Unknown users yield
// rbac.ErrNotFound.
func (c *Console) SetActive(ctx context.Context, id string, active bool) error {
	if _, ok := c.users.User(id); !ok {
		return fmt.Errorf("%w: %s", rbac.ErrNotFound, id)
	}
	return c.users.ToggleActive(ctx, id, active, c.operator)
}

// ListUsers returns a copy of the registry
func (c *Console) ListUsers() rbac.Registry {
	return c.users.Users()
}

// ListPermissions returns a copy of role's permissions and whether it exists
func (c *Console) ListPermissions(role string) (rbac.Permissions, bool) {
	return c.perms.Role(role)
}

// Roles returns the defined roles
func (c *Console) Roles() []string {
	return c.perms.Roles()
}

// Reload re-reads both stores from the backend
func (c *Console) Reload(ctx context.Context) error {
	if c.reloader != nil {
		return c.reloader.ReloadAll(ctx)
	}
	if err := c.perms.Reload(ctx); err != nil {
		return err
	}
	return c.users.Reload(ctx)
}

// AuditTrail returns up to count recent audit records
func (c *Console) AuditTrail(count int) ([]*audit.Record, error) {
	if c.auditReader == nil {
		return nil, fmt.Errorf("audit trail is not available")
	}
	return c.auditReader.ReadRecords(count)
}
