package coach

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
)

// gatedStore blocks every Save until release is closed and records the order
// in which snapshots arrive.
type gatedStore struct {
	fakeStore
	release chan struct{}

	orderMu     sync.Mutex
	order       []string
	inFlight    int
	maxInFlight int
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		fakeStore: fakeStore{saved: map[string]essay.Snapshot{}},
		release:   make(chan struct{}),
	}
}

func (s *gatedStore) Save(ctx context.Context, key string, snap essay.Snapshot) error {
	s.orderMu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.orderMu.Unlock()

	<-s.release

	s.orderMu.Lock()
	s.inFlight--
	s.order = append(s.order, snap.ConversationID)
	s.orderMu.Unlock()
	return s.fakeStore.Save(ctx, key, snap)
}

func TestRestartSnapshotLandsAfterEarlierTurn(t *testing.T) {
	store := newGatedStore()
	o := newTestOrchestrator(t, &fakeTutor{}, store)
	oldID := o.SessionID()

	// the turn's snapshots queue behind the blocked first write
	_, err := o.SendUserMessage(context.Background(), "My topic is the future of public libraries.")
	require.NoError(t, err)
	fresh := o.Restart(context.Background())
	require.NotEqual(t, oldID, fresh.SessionID)

	close(store.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, o.Flush(ctx))

	snap, ok := store.get("client-1")
	require.True(t, ok)
	assert.Equal(t, fresh.SessionID, snap.ConversationID, "a reload must resume the restarted session")

	store.orderMu.Lock()
	defer store.orderMu.Unlock()
	require.NotEmpty(t, store.order)
	assert.Equal(t, fresh.SessionID, store.order[len(store.order)-1])
	assert.Equal(t, 1, store.maxInFlight, "writes for one session never overlap")
}

func TestSnapshotWriterKeepsOnlyNewestPending(t *testing.T) {
	store := newGatedStore()
	w := newSnapshotWriter(store, "k", time.Second, logger.Nop())

	w.enqueue(essay.Snapshot{ConversationID: "a"})
	// "a" is being written; "b" is replaced by "c" before the write returns
	require.Eventually(t, func() bool {
		store.orderMu.Lock()
		defer store.orderMu.Unlock()
		return store.inFlight == 1
	}, time.Second, time.Millisecond)
	w.enqueue(essay.Snapshot{ConversationID: "b"})
	w.enqueue(essay.Snapshot{ConversationID: "c"})

	close(store.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.flush(ctx))

	assert.Equal(t, []string{"a", "c"}, store.order)
	snap, _ := store.get("k")
	assert.Equal(t, "c", snap.ConversationID)
}

func TestFlushWithoutStore(t *testing.T) {
	o := newTestOrchestrator(t, &fakeTutor{}, nil)
	assert.NoError(t, o.Flush(context.Background()))
}
