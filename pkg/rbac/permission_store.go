package rbac

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/backend"
	"github.com/platinummonkey/permgate/pkg/observability"
)

// PermissionStore owns the role to permission matrix.
//
// Reads take the read lock and return copies. Persisted mutations build a
// successor matrix, save it, and only then swap it in, so a failed save leaves
// the in-memory matrix untouched.
type PermissionStore struct {
	mu      sync.RWMutex
	matrix  Matrix
	backend backend.Backend
	opts    storeOptions
	log     logrus.FieldLogger
	notifier
}

type grantInput struct {
	Role string `validate:"required"`
	Key  string `validate:"required"`
}

// NewPermissionStore creates an empty store backed by b. Call Load to read the
// persisted matrix.
func NewPermissionStore(b backend.Backend, opts ...StoreOption) *PermissionStore {
	o := newStoreOptions(DefaultPermissionsDocument, opts)
	o.logger = o.logger.WithFields(logrus.Fields{
		"component": "permissions",
		"document":  o.document,
	})
	return &PermissionStore{
		matrix:  Matrix{},
		backend: b,
		opts:    o,
		log:     o.logger,
	}
}

// Name identifies the store in logs and metrics
func (s *PermissionStore) Name() string { return "permissions" }

// Document returns the backend document name
func (s *PermissionStore) Document() string { return s.opts.document }

// Load replaces the matrix with the persisted document. A missing document
// yields an empty matrix. On error the current matrix is kept.
func (s *PermissionStore) Load(ctx context.Context) error {
	s.mu.Lock()

	var m Matrix
	found, err := s.backend.Load(ctx, s.opts.document, &m)
	if err != nil {
		s.mu.Unlock()
		err = persistenceError("load", s.opts.document, err)
		s.opts.metrics.RecordReload(s.Name(), err)
		observability.WithTraceContext(ctx, s.log).WithError(err).Error("Failed to load permission matrix")
		return err
	}
	if !found || m == nil {
		m = Matrix{}
	}
	for role, perms := range m {
		if perms == nil {
			m[role] = Permissions{}
		}
	}
	s.matrix = m
	s.mu.Unlock()

	s.opts.metrics.RecordReload(s.Name(), nil)
	s.opts.metrics.SetRoles(len(m))
	s.log.WithFields(logrus.Fields{"roles": len(m), "found": found}).Info("Loaded permission matrix")
	s.notify()
	return nil
}

// Reload is Load under the name the reloader uses
func (s *PermissionStore) Reload(ctx context.Context) error { return s.Load(ctx) }

// commit persists the successor built by mutate and swaps it in. rec, when
// non-nil, is audited after the save succeeds.
func (s *PermissionStore) commit(ctx context.Context, op string, mutate func(Matrix), rec *audit.Record) error {
	s.mu.Lock()

	next := s.matrix.Clone()
	mutate(next)

	if err := s.backend.Save(ctx, s.opts.document, next); err != nil {
		s.mu.Unlock()
		err = persistenceError("save", s.opts.document, err)
		s.opts.metrics.RecordMutation(op, err)
		observability.WithTraceContext(ctx, s.log).WithError(err).WithField("op", op).Error("Failed to persist permission matrix")
		return err
	}
	s.matrix = next
	if rec != nil {
		s.opts.appendAudit(ctx, rec)
	}
	s.mu.Unlock()

	s.opts.metrics.RecordMutation(op, nil)
	s.opts.metrics.SetRoles(len(next))
	s.notify()
	return nil
}

// Grant sets key on role to value, persists the matrix and writes one
// PERMISSION CHANGE audit record. The role is created if absent.
func (s *PermissionStore) Grant(ctx context.Context, role, key string, value bool, operator string) error {
	if err := validate.Struct(grantInput{Role: role, Key: key}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err := s.commit(ctx, "grant", func(m Matrix) {
		perms, ok := m[role]
		if !ok {
			perms = Permissions{}
			m[role] = perms
		}
		perms[key] = value
	}, audit.NewPermissionChange(role, key, value, operator))
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"op":       "grant",
		"role":     role,
		"key":      key,
		"value":    value,
		"operator": operator,
	}).Info("Permission updated")
	return nil
}

// Import replaces the whole matrix and persists it. Imports are not audited.
func (s *PermissionStore) Import(ctx context.Context, m Matrix) error {
	incoming := m.Clone()
	err := s.commit(ctx, "import", func(next Matrix) {
		for role := range next {
			delete(next, role)
		}
		for role, perms := range incoming {
			next[role] = perms
		}
	}, nil)
	if err != nil {
		return err
	}
	s.log.WithField("roles", len(incoming)).Info("Imported permission matrix")
	return nil
}

// Save persists the current in-memory matrix
func (s *PermissionStore) Save(ctx context.Context) error {
	return s.commit(ctx, "save", func(Matrix) {}, nil)
}

// change applies an in-memory edit without persisting it
func (s *PermissionStore) change(fn func(Matrix) bool) {
	s.mu.Lock()
	changed := fn(s.matrix)
	n := len(s.matrix)
	s.mu.Unlock()

	if changed {
		s.opts.metrics.SetRoles(n)
		s.notify()
	}
}

// SetRolePermissions replaces the permissions of role in memory
func (s *PermissionStore) SetRolePermissions(role string, perms Permissions) {
	cp := perms.Clone()
	s.change(func(m Matrix) bool {
		m[role] = cp
		return true
	})
}

// UpdatePermission sets one key in memory, creating the role if absent
func (s *PermissionStore) UpdatePermission(role, key string, value bool) {
	s.change(func(m Matrix) bool {
		perms, ok := m[role]
		if !ok {
			perms = Permissions{}
			m[role] = perms
		}
		perms[key] = value
		return true
	})
}

// DeletePermission removes key from role in memory. Missing roles and keys are
// ignored.
func (s *PermissionStore) DeletePermission(role, key string) {
	s.change(func(m Matrix) bool {
		perms, ok := m[role]
		if !ok {
			return false
		}
		if _, ok := perms[key]; !ok {
			return false
		}
		delete(perms, key)
		return true
	})
}

// RolePermissions returns a copy of role's permissions, empty if undefined
func (s *PermissionStore) RolePermissions(role string) Permissions {
	perms, _ := s.Role(role)
	return perms
}

// Role returns a copy of role's permissions and whether the role exists
func (s *PermissionStore) Role(role string) (Permissions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms, ok := s.matrix[role]
	return perms.Clone(), ok
}

// HasRole reports whether role is defined
func (s *PermissionStore) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.matrix[role]
	return ok
}

// HasPermission reports whether role grants key. Unknown roles and keys are
// denied.
func (s *PermissionStore) HasPermission(role, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix[role][key]
}

// Roles returns the defined role names, sorted
func (s *PermissionStore) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix.Roles()
}

// AllPermissionKeys returns every key used by any role, sorted
func (s *PermissionStore) AllPermissionKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix.AllPermissionKeys()
}

// Export returns a deep copy of the matrix
func (s *PermissionStore) Export() Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix.Clone()
}
