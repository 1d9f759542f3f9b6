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

// UserStore owns the user registry. It follows the same locking and
// copy-on-write rules as PermissionStore.
type UserStore struct {
	mu       sync.RWMutex
	registry Registry
	backend  backend.Backend
	opts     storeOptions
	log      logrus.FieldLogger
	notifier
}

type addUserInput struct {
	ID   string `validate:"required"`
	Role string `validate:"required"`
}

// NewUserStore creates an empty store backed by b. Call Load to read the
// persisted registry.
func NewUserStore(b backend.Backend, opts ...StoreOption) *UserStore {
	o := newStoreOptions(DefaultUsersDocument, opts)
	o.logger = o.logger.WithFields(logrus.Fields{
		"component": "users",
		"document":  o.document,
	})
	return &UserStore{
		registry: Registry{},
		backend:  b,
		opts:     o,
		log:      o.logger,
	}
}

// Name identifies the store in logs and metrics
func (s *UserStore) Name() string { return "users" }

// Document returns the backend document name
func (s *UserStore) Document() string { return s.opts.document }

// Load replaces the registry with the persisted document. A missing document
// yields an empty registry. On error the current registry is kept.
func (s *UserStore) Load(ctx context.Context) error {
	s.mu.Lock()

	var r Registry
	found, err := s.backend.Load(ctx, s.opts.document, &r)
	if err != nil {
		s.mu.Unlock()
		err = persistenceError("load", s.opts.document, err)
		s.opts.metrics.RecordReload(s.Name(), err)
		observability.WithTraceContext(ctx, s.log).WithError(err).Error("Failed to load user registry")
		return err
	}
	if !found || r == nil {
		r = Registry{}
	}
	s.registry = r
	s.mu.Unlock()

	s.opts.metrics.RecordReload(s.Name(), nil)
	s.opts.metrics.SetUsers(len(r))
	s.log.WithFields(logrus.Fields{"users": len(r), "found": found}).Info("Loaded user registry")
	s.notify()
	return nil
}

// Reload is Load under the name the reloader uses
func (s *UserStore) Reload(ctx context.Context) error { return s.Load(ctx) }

// commit persists the successor built by mutate and swaps it in. When mutate
// reports no change nothing is saved or audited and commit returns false.
func (s *UserStore) commit(ctx context.Context, op string, mutate func(Registry) bool, rec *audit.Record) (bool, error) {
	s.mu.Lock()

	next := s.registry.Clone()
	if !mutate(next) {
		s.mu.Unlock()
		return false, nil
	}

	if err := s.backend.Save(ctx, s.opts.document, next); err != nil {
		s.mu.Unlock()
		err = persistenceError("save", s.opts.document, err)
		s.opts.metrics.RecordMutation(op, err)
		observability.WithTraceContext(ctx, s.log).WithError(err).WithField("op", op).Error("Failed to persist user registry")
		return false, err
	}
	s.registry = next
	if rec != nil {
		s.opts.appendAudit(ctx, rec)
	}
	s.mu.Unlock()

	s.opts.metrics.RecordMutation(op, nil)
	s.opts.metrics.SetUsers(len(next))
	s.notify()
	return true, nil
}

// AddUser inserts or fully replaces a user, persists the registry and writes
// one USER ADD audit record. The role is not checked against the matrix.
func (s *UserStore) AddUser(ctx context.Context, id, role string, clientID *string, active bool, operator string) error {
	if err := validate.Struct(addUserInput{ID: id, Role: role}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user := User{Role: role, ClientID: clientID, Active: active}.Clone()

	_, err := s.commit(ctx, "add_user", func(r Registry) bool {
		r[id] = user
		return true
	}, audit.NewUserAdd(id, role, clientID, active, operator))
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"op":       "add_user",
		"user":     id,
		"role":     role,
		"active":   active,
		"operator": operator,
	}).Info("User saved")
	return nil
}

// ToggleActive sets the active flag of an existing user, persists the registry
// and writes one USER STATUS TOGGLE audit record. Unknown users are ignored.
func (s *UserStore) ToggleActive(ctx context.Context, id string, active bool, operator string) error {
	applied, err := s.commit(ctx, "toggle", func(r Registry) bool {
		u, ok := r[id]
		if !ok {
			return false
		}
		u.Active = active
		r[id] = u
		return true
	}, audit.NewStatusToggle(id, active, operator))
	if err != nil {
		return err
	}
	if !applied {
		s.log.WithFields(logrus.Fields{"op": "toggle", "user": id}).Warn("Ignoring status toggle for unknown user")
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"op":       "toggle",
		"user":     id,
		"active":   active,
		"operator": operator,
	}).Info("User status changed")
	return nil
}

// Import replaces the whole registry and persists it. Imports are not audited.
func (s *UserStore) Import(ctx context.Context, r Registry) error {
	incoming := r.Clone()
	_, err := s.commit(ctx, "import", func(next Registry) bool {
		for id := range next {
			delete(next, id)
		}
		for id, u := range incoming {
			next[id] = u
		}
		return true
	}, nil)
	if err != nil {
		return err
	}
	s.log.WithField("users", len(incoming)).Info("Imported user registry")
	return nil
}

// Save persists the current in-memory registry
func (s *UserStore) Save(ctx context.Context) error {
	_, err := s.commit(ctx, "save", func(Registry) bool { return true }, nil)
	return err
}

// User returns a copy of the user record
func (s *UserStore) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.registry[id]
	return u.Clone(), ok
}

// IsActive reports whether the user exists and is active
func (s *UserStore) IsActive(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id].Active
}

// Users returns a deep copy of the registry
func (s *UserStore) Users() Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Clone()
}

// UserIDs returns the registered IDs, sorted
func (s *UserStore) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.IDs()
}
