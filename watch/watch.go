// Package watch polls a version token and runs a reload when it moves.
// forkify uses it to pick up bookmark lists written by another process
// sharing the same database file.
//
//	w := watch.New(marks.Version, watch.Options{Interval: 2 * time.Second})
//	go w.OnChange(ctx, func() error { return store.ReloadBookmarks(ctx) })
package watch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Detector reads the current version token. Two different values mean the
// watched data changed.
type Detector func(ctx context.Context) (int64, error)

// Options tunes a Watcher.
type Options struct {
	// Interval between polls. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the reload runs.
	// A further change restarts it. 0 reloads on the poll that saw the change.
	Debounce time.Duration
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher runs a reload when its Detector reports a new version.
type Watcher struct {
	detect Detector
	opts   Options

	version atomic.Int64
	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
	reloads atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks  int64 `json:"checks"`
	Changes int64 `json:"changes"`
	Errors  int64 `json:"errors"`
	Reloads int64 `json:"reloads"`
}

// New creates a Watcher. Call OnChange to start it.
func New(detect Detector, opts Options) *Watcher {
	opts.defaults()
	return &Watcher{detect: detect, opts: opts}
}

// Stats returns the counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Checks:  w.checks.Load(),
		Changes: w.changes.Load(),
		Errors:  w.errors.Load(),
		Reloads: w.reloads.Load(),
	}
}

// Version returns the last version a reload succeeded for, or the initial one.
func (w *Watcher) Version() int64 { return w.version.Load() }

// OnChange polls until ctx is done. The version read on entry is the
// baseline and does not trigger reload. A failed reload leaves the version
// where it was, so the next poll tries again.
func (w *Watcher) OnChange(ctx context.Context, reload func() error) {
	v, err := w.detect(ctx)
	if err != nil {
		w.opts.Logger.Warn("watch: initial version", "error", err)
	}
	w.OnChangeSince(ctx, v, reload)
}

// OnChangeSince is OnChange with a baseline read earlier by the caller, so
// a change between that read and the first poll is not lost.
func (w *Watcher) OnChangeSince(ctx context.Context, baseline int64, reload func() error) {
	log := w.opts.Logger
	w.version.Store(baseline)

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var timer *time.Timer
	var fire <-chan time.Time
	pending := int64(-1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.detect(ctx)
			if err != nil {
				w.errors.Add(1)
				log.Warn("watch: version check", "error", err)
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			w.changes.Add(1)
			pending = cur
			if w.opts.Debounce <= 0 {
				w.run(reload, pending)
				pending = -1
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.opts.Debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if pending >= 0 {
				w.run(reload, pending)
				pending = -1
			}
		}
	}
}

func (w *Watcher) run(reload func() error, v int64) {
	start := time.Now()
	if err := reload(); err != nil {
		w.errors.Add(1)
		w.opts.Logger.Error("watch: reload", "version", v, "error", err)
		return
	}
	w.reloads.Add(1)
	w.version.Store(v)
	w.opts.Logger.Debug("watch: reloaded", "version", v, "duration", time.Since(start))
}
