package mapper

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/gridmap2d/internal/gridmap"
	"github.com/banshee-data/gridmap2d/internal/monitoring"
)

// Persister writes a snapshot of its grid to a store.
type Persister interface {
	Persist(store gridmap.SnapshotStore, reason string) error
}

// pendingCounter reports scans merged since the last snapshot. Persisters
// that implement it are skipped while idle.
type pendingCounter interface {
	PendingScans() int
}

// SnapshotFlusher writes a snapshot every interval while scans keep
// arriving, and once more with reason "shutdown" when it stops.
type SnapshotFlusher struct {
	manager  Persister
	store    gridmap.SnapshotStore
	interval time.Duration
	reason   string
	logf     func(format string, v ...interface{})

	mu     sync.Mutex
	cancel context.CancelFunc // set while Run is active
	done   chan struct{}
}

// SnapshotFlusherConfig configures a SnapshotFlusher. Reason defaults to
// "periodic" and Logf to monitoring.Logf.
type SnapshotFlusherConfig struct {
	Manager  Persister
	Store    gridmap.SnapshotStore
	Interval time.Duration
	Reason   string
	Logf     func(format string, v ...interface{})
}

func NewSnapshotFlusher(cfg SnapshotFlusherConfig) *SnapshotFlusher {
	f := &SnapshotFlusher{
		manager:  cfg.Manager,
		store:    cfg.Store,
		interval: cfg.Interval,
		reason:   cfg.Reason,
		logf:     cfg.Logf,
	}
	if f.reason == "" {
		f.reason = "periodic"
	}
	if f.logf == nil {
		f.logf = func(format string, v ...interface{}) { monitoring.Logf(format, v...) }
	}
	return f
}

// Run blocks until ctx is cancelled or Stop is called, then writes the
// shutdown snapshot. A second concurrent Run returns immediately.
func (f *SnapshotFlusher) Run(ctx context.Context) error {
	if f.interval <= 0 {
		f.logf("snapshot flusher: interval is zero, periodic snapshots disabled")
		return nil
	}

	f.mu.Lock()
	if f.cancel != nil {
		f.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel, f.done = cancel, done
	f.mu.Unlock()

	defer func() {
		cancel()
		f.mu.Lock()
		f.cancel = nil
		f.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	f.logf("snapshot flusher: every %v, reason=%s", f.interval, f.reason)

	for {
		select {
		case <-ctx.Done():
			f.persist("shutdown", false)
			return nil
		case <-ticker.C:
			f.persist(f.reason, false)
		}
	}
}

// Stop ends a running Run and waits for its shutdown snapshot. Calling it
// when nothing runs is a no-op.
func (f *SnapshotFlusher) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (f *SnapshotFlusher) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// FlushNow writes a snapshot with the configured reason even if no scan
// arrived since the last one.
func (f *SnapshotFlusher) FlushNow() {
	f.persist(f.reason, true)
}

func (f *SnapshotFlusher) persist(reason string, force bool) {
	if f.manager == nil || f.store == nil {
		return
	}
	if pc, ok := f.manager.(pendingCounter); ok && !force && pc.PendingScans() == 0 {
		return
	}
	if err := f.manager.Persist(f.store, reason); err != nil {
		f.logf("snapshot flusher: error flushing: %v", err)
		return
	}
	f.logf("snapshot flusher: wrote %s snapshot", reason)
}
