package rbac

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/permgate/pkg/audit"
	"github.com/platinummonkey/permgate/pkg/observability"
)

var validate = validator.New()

// StoreOption configures a PermissionStore or UserStore
type StoreOption func(*storeOptions)

type storeOptions struct {
	document string
	audit    audit.Logger
	logger   logrus.FieldLogger
	metrics  *observability.Metrics
	clock    func() time.Time
}

func newStoreOptions(document string, opts []StoreOption) storeOptions {
	o := storeOptions{
		document: document,
		audit:    audit.NoOp(),
		logger:   observability.NopLogger(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDocument overrides the backend document name
func WithDocument(name string) StoreOption {
	return func(o *storeOptions) { o.document = name }
}

// WithAuditLogger sets the audit sink for committed mutations
func WithAuditLogger(l audit.Logger) StoreOption {
	return func(o *storeOptions) {
		if l != nil {
			o.audit = l
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(l logrus.FieldLogger) StoreOption {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records mutations, reloads and audit failures
func WithMetrics(m *observability.Metrics) StoreOption {
	return func(o *storeOptions) { o.metrics = m }
}

// WithClock sets the time source for audit timestamps
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// notifier fans out change notifications to subscribers
type notifier struct {
	mu   sync.Mutex
	subs []func()
}

// Subscribe registers fn to run after every committed change. fn runs outside
// the store lock and may read the store.
func (n *notifier) Subscribe(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

func (n *notifier) notify() {
	n.mu.Lock()
	subs := append([]func(){}, n.subs...)
	n.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// appendAudit writes rec and swallows failures after logging and counting them
func (o *storeOptions) appendAudit(ctx context.Context, rec *audit.Record) {
	rec.Timestamp = o.clock()
	if err := o.audit.Append(ctx, rec); err != nil {
		observability.WithTraceContext(ctx, o.logger).WithError(err).WithFields(logrus.Fields{
			"record_id": rec.ID.String(),
			"kind":      string(rec.Kind),
			"record":    rec.Format(),
		}).Error("Failed to write audit record")
		o.metrics.RecordAuditFailure()
	}
}
