package coach

import (
	"context"
	"errors"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrRequestPending   = errors.New("a tutor request is already in flight")
	ErrStaleResponse    = errors.New("tutor response belongs to a previous session")
	ErrTutorUnavailable = errors.New("tutor service failed")
	ErrTutorRequired    = errors.New("tutor is required")
)

// Tutor is the external tutoring service.
type Tutor interface {
	Reply(ctx context.Context, req essay.TutorRequest) (*essay.TutorResponse, error)
}

// SnapshotStore persists session snapshots keyed by client.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap essay.Snapshot) error
	Load(ctx context.Context, key string) (essay.Snapshot, bool, error)
}
