package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/essay-coach/backend/internal/service/coach"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
)

var (
	ErrClientKeyRequired = errors.New("client key is required")
	ErrSessionNotFound   = errors.New("session not found")
)

// forgetter is implemented by tutors that keep per-conversation history.
type forgetter interface {
	Forget(sessionID string)
}

// Config wires the collaborators every session shares.
type Config struct {
	Tutor          coach.Tutor
	Store          coach.SnapshotStore
	Logger         *logger.Logger
	PersistTimeout time.Duration
}

// Service keeps the live coaching sessions in memory, indexed by session id.
type Service struct {
	cfg Config
	log *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*coach.Orchestrator
}

// NewService creates an empty registry.
func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		cfg:      cfg,
		log:      log.With("service", "session"),
		sessions: make(map[string]*coach.Orchestrator),
	}
}

// Create starts a session for a client. A client whose stored conversation
// is still live gets that session back.
func (s *Service) Create(ctx context.Context, clientKey string) (*coach.Orchestrator, error) {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return nil, ErrClientKeyRequired
	}

	orch, err := coach.NewOrchestrator(ctx, coach.Options{
		Tutor:          s.cfg.Tutor,
		Store:          s.cfg.Store,
		ClientKey:      clientKey,
		Logger:         s.log,
		PersistTimeout: s.cfg.PersistTimeout,
	})
	if err != nil {
		return nil, err
	}

	id := orch.SessionID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = orch
	return orch, nil
}

// Get retrieves a session by identifier.
func (s *Service) Get(_ context.Context, sessionID string) (*coach.Orchestrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orch, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return orch, nil
}

// Send forwards a student message to the session.
func (s *Service) Send(ctx context.Context, sessionID, text string) (*coach.Turn, coach.State, error) {
	orch, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, coach.State{}, err
	}
	turn, err := orch.SendUserMessage(ctx, text)
	return turn, orch.State(), err
}

// Restart resets the session and re-indexes it under its new id. The lookup
// and the re-keying happen under one lock, so of two concurrent restarts of
// the same id only the first succeeds.
func (s *Service) Restart(ctx context.Context, sessionID string) (coach.State, error) {
	s.mu.Lock()
	orch, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return coach.State{}, ErrSessionNotFound
	}
	state := orch.Restart(ctx)
	delete(s.sessions, sessionID)
	s.sessions[state.SessionID] = orch
	s.mu.Unlock()

	if f, ok := s.cfg.Tutor.(forgetter); ok {
		f.Forget(sessionID)
	}
	return state, nil
}

// Len reports how many sessions are live.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Flush waits for every session's pending snapshot writes. It is called on
// shutdown before the store closes.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.RLock()
	live := make([]*coach.Orchestrator, 0, len(s.sessions))
	for _, orch := range s.sessions {
		live = append(live, orch)
	}
	s.mu.RUnlock()

	for _, orch := range live {
		if err := orch.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
