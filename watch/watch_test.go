package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type counter struct{ v atomic.Int64 }

func (c *counter) detect(ctx context.Context) (int64, error) { return c.v.Load(), nil }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func counting(n *atomic.Int32) func() error {
	return func() error {
		n.Add(1)
		return nil
	}
}

func start(t *testing.T, w *Watcher, reload func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.OnChange(ctx, reload)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestOnChange_ReloadsOnVersionChange(t *testing.T) {
	// WHAT: The version moves twice, then stays put.
	// WHY: One reload per change; the baseline read on start is not a change.
	var c counter
	c.v.Store(5)
	var reloads atomic.Int32
	w := New(c.detect, Options{Interval: 10 * time.Millisecond})
	start(t, w, counting(&reloads))

	eventually(t, "first checks", func() bool { return w.Stats().Checks >= 2 })
	if got := reloads.Load(); got != 0 {
		t.Fatalf("reloads before change: got %d, want 0", got)
	}

	c.v.Store(6)
	eventually(t, "reload 1", func() bool { return reloads.Load() == 1 })
	c.v.Store(7)
	eventually(t, "reload 2", func() bool { return reloads.Load() == 2 })

	checks := w.Stats().Checks
	eventually(t, "quiet polls", func() bool { return w.Stats().Checks >= checks+3 })
	if got := reloads.Load(); got != 2 {
		t.Fatalf("reloads: got %d, want 2", got)
	}
	if w.Version() != 7 {
		t.Errorf("version: got %d, want 7", w.Version())
	}
}

func TestOnChange_Debounce(t *testing.T) {
	var c counter
	var reloads atomic.Int32
	w := New(c.detect, Options{Interval: 5 * time.Millisecond, Debounce: 150 * time.Millisecond})
	start(t, w, counting(&reloads))

	eventually(t, "first check", func() bool { return w.Stats().Checks >= 1 })
	for i := 1; i <= 5; i++ {
		c.v.Store(int64(i))
		time.Sleep(10 * time.Millisecond)
	}
	if got := reloads.Load(); got != 0 {
		t.Fatalf("reloads inside debounce window: got %d, want 0", got)
	}
	eventually(t, "debounced reload", func() bool { return reloads.Load() == 1 })
	if w.Version() != 5 {
		t.Errorf("version: got %d, want 5", w.Version())
	}
}

func TestOnChange_FailedReloadRetries(t *testing.T) {
	var c counter
	var calls atomic.Int32
	w := New(c.detect, Options{Interval: 10 * time.Millisecond})
	start(t, w, func() error {
		if calls.Add(1) == 1 {
			return errors.New("locked")
		}
		return nil
	})

	eventually(t, "first check", func() bool { return w.Stats().Checks >= 1 })
	c.v.Store(1)
	eventually(t, "retry", func() bool { return w.Version() == 1 })

	s := w.Stats()
	if calls.Load() < 2 || s.Reloads != 1 || s.Errors < 1 {
		t.Errorf("stats: calls=%d %+v", calls.Load(), s)
	}
}

func TestOnChange_DetectorErrorsCounted(t *testing.T) {
	var reloads atomic.Int32
	w := New(func(ctx context.Context) (int64, error) {
		return 0, errors.New("no database")
	}, Options{Interval: 10 * time.Millisecond})
	start(t, w, counting(&reloads))

	eventually(t, "errors", func() bool { return w.Stats().Errors >= 2 })
	if reloads.Load() != 0 {
		t.Errorf("reloads: got %d, want 0", reloads.Load())
	}
}

func TestOnChangeSince_ChangeBeforeFirstPoll(t *testing.T) {
	var c counter
	c.v.Store(3) // moved after the caller's baseline of 2
	var reloads atomic.Int32
	w := New(c.detect, Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.OnChangeSince(ctx, 2, counting(&reloads))
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	eventually(t, "reload", func() bool { return reloads.Load() == 1 })
	if w.Version() != 3 {
		t.Errorf("version: got %d, want 3", w.Version())
	}
}
