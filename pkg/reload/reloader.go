// Package reload keeps the stores in step with their backing documents: on
// demand, when a watched file changes, or on a cron schedule.
package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/permgate/pkg/observability"
)

// DefaultDebounce is how long Watch waits after the last event before reloading
const DefaultDebounce = 200 * time.Millisecond

// Store is anything that can re-read itself from its backend
type Store interface {
	Name() string
	Reload(ctx context.Context) error
}

// Option configures a Reloader
type Option func(*Reloader)

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reloader) {
		if l != nil {
			r.log = l.WithField("component", "reloader")
		}
	}
}

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) { r.debounce = d }
}

// Reloader reloads a fixed set of stores
type Reloader struct {
	stores   []Store
	log      logrus.FieldLogger
	debounce time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a Reloader for stores
func New(stores []Store, opts ...Option) *Reloader {
	r := &Reloader{
		stores:   stores,
		log:      observability.NopLogger().WithField("component", "reloader"),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReloadAll reloads every store concurrently and returns the first failure.
// Stores that fail keep their previous contents.
func (r *Reloader) ReloadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range r.stores {
		s := s
		g.Go(func() error {
			if err := s.Reload(ctx); err != nil {
				return fmt.Errorf("reload %s: %w", s.Name(), err)
			}
			return nil
		})
	}

	start := time.Now()
	err := g.Wait()
	entry := r.log.WithFields(logrus.Fields{
		"op":       "reload_all",
		"stores":   len(r.stores),
		"duration": time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Error("Reload failed")
		return err
	}
	entry.Debug("Reloaded stores")
	return nil
}

// Watch reloads all stores shortly after any of paths is written, created or
// renamed. The parent directories are watched so atomic replace-by-rename is
// seen. Watch returns once the watcher is running; it stops when ctx is done.
func (r *Reloader) Watch(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("watch: no paths given")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", p, err)
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	r.log.WithField("paths", paths).Info("Watching documents for changes")
	go r.watchLoop(ctx, watcher, targets)
	return nil
}

func (r *Reloader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]bool) {
	defer watcher.Close()
	defer observability.RecoverPanic(r.log, "reload.watch")

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !targets[name] {
				continue
			}
			r.log.WithFields(logrus.Fields{"file": name, "event": event.Op.String()}).Debug("Document changed")
			timer.Reset(r.debounce)

		case <-timer.C:
			_ = r.ReloadAll(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.WithError(err).Warn("Watcher error")
		}
	}
}

// Schedule runs ReloadAll on a cron spec such as "*/5 * * * *" or "@every 1m".
// The scheduler starts with the first entry.
func (r *Reloader) Schedule(spec string) (cron.EntryID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		r.cron = cron.New()
	}
	id, err := r.cron.AddFunc(spec, func() {
		defer observability.RecoverPanic(r.log, "reload.schedule")
		_ = r.ReloadAll(context.Background())
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule reload %q: %w", spec, err)
	}
	r.cron.Start()
	r.log.WithField("schedule", spec).Info("Scheduled reload")
	return id, nil
}

// Stop halts the scheduler and waits for a running reload to finish
func (r *Reloader) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
