package rbac

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/permgate/pkg/observability"
)

const tracerName = "github.com/platinummonkey/permgate/pkg/rbac"

// ContextResolver turns a user ID into a UserContext
type ContextResolver interface {
	Resolve(ctx context.Context, userID string) (*UserContext, error)
}

// UserSource looks up user records
type UserSource interface {
	User(id string) (User, bool)
}

// RoleSource looks up role permissions in a single atomic read
type RoleSource interface {
	Role(name string) (Permissions, bool)
}

// Resolver composes a RoleSource and a UserSource. It performs no writes.
type Resolver struct {
	perms    RoleSource
	users    UserSource
	observer Observer
	tracer   trace.Tracer
	metrics  *observability.Metrics
	now      func() time.Time
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithObserver reports each resolution step to o
func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithTracerProvider sets the tracer provider; the global one is the default
func WithTracerProvider(tp trace.TracerProvider) ResolverOption {
	return func(r *Resolver) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithResolverMetrics counts resolutions by outcome
func WithResolverMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithResolverClock sets the time source for UserContext.ResolvedAt
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a resolver over the given stores
func NewResolver(perms RoleSource, users UserSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		perms:    perms,
		users:    users,
		observer: NopObserver{},
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates the user and snapshots its role's permissions. Checks run
// in order: the user must exist (ErrNotFound), be active (ErrDeactivated), and
// hold a defined role (ErrInvalidRole). Failures are *ResolveError values.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*UserContext, error) {
	start := time.Now()
	_, span := r.tracer.Start(ctx, "rbac.Resolve",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	uc, err := r.resolve(userID)

	outcome := Outcome(err)
	span.SetAttributes(attribute.String("rbac.outcome", outcome))
	if err != nil {
		if re, ok := err.(*ResolveError); ok && re.Role != "" {
			span.SetAttributes(attribute.String("user.role", re.Role))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		r.observer.Failed(userID, err)
	} else {
		span.SetAttributes(attribute.String("user.role", uc.Role()))
		r.observer.Resolved(uc)
	}
	r.metrics.RecordResolution(outcome, time.Since(start))

	return uc, err
}

func (r *Resolver) resolve(userID string) (*UserContext, error) {
	r.observer.Started(userID)

	user, ok := r.users.User(userID)
	if !ok {
		return nil, &ResolveError{Kind: ErrNotFound, UserID: userID}
	}
	r.observer.UserFound(userID, user)

	if !user.Active {
		return nil, &ResolveError{Kind: ErrDeactivated, UserID: userID, Role: user.Role}
	}
	r.observer.Activated(userID)

	perms, ok := r.perms.Role(user.Role)
	if !ok {
		return nil, &ResolveError{Kind: ErrInvalidRole, UserID: userID, Role: user.Role}
	}
	r.observer.RoleValidated(userID, user.Role)

	return newUserContext(userID, user.Role, user.ClientID, perms, r.now()), nil
}
