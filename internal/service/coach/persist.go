package coach

import (
	"context"
	"sync"
	"time"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
)

// snapshotWriter saves one session's snapshots in the order they were taken.
// At most one write runs at a time and only the newest pending snapshot is
// kept, so a slow write can never land after a later one.
type snapshotWriter struct {
	store   SnapshotStore
	key     string
	timeout time.Duration
	log     *logger.Logger

	mu      sync.Mutex
	pending *essay.Snapshot
	running bool
	idle    chan struct{}
}

func newSnapshotWriter(store SnapshotStore, key string, timeout time.Duration, log *logger.Logger) *snapshotWriter {
	return &snapshotWriter{store: store, key: key, timeout: timeout, log: log}
}

// enqueue replaces the pending snapshot and starts the drain loop if it is
// not already running. It never blocks on the store.
func (w *snapshotWriter) enqueue(snap essay.Snapshot) {
	w.mu.Lock()
	w.pending = &snap
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.idle = make(chan struct{})
	w.mu.Unlock()

	go w.drain()
}

func (w *snapshotWriter) drain() {
	for {
		w.mu.Lock()
		snap := w.pending
		w.pending = nil
		if snap == nil {
			w.running = false
			close(w.idle)
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		w.write(*snap)
	}
}

func (w *snapshotWriter) write(snap essay.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("snapshot persistence panicked", "session_id", snap.ConversationID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.store.Save(ctx, w.key, snap); err != nil {
		w.log.Warn("failed to persist session snapshot", "session_id", snap.ConversationID, "error", err)
	}
}

// flush waits until every enqueued snapshot has been written or ctx ends.
func (w *snapshotWriter) flush(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
