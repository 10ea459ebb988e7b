package coach

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/essay-coach/backend/internal/analysis/extract"
	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
)

const (
	defaultClientKey      = "default"
	defaultPersistTimeout = 5 * time.Second
	emptyReplyText        = "Got it, your outline is updated."
)

// Options configures an Orchestrator. Tutor is required; Store is optional.
type Options struct {
	Tutor          Tutor
	Store          SnapshotStore
	ClientKey      string
	Logger         *logger.Logger
	Now            func() time.Time
	NewID          func() string
	PersistTimeout time.Duration
}

// Turn is the outcome of one accepted user message.
type Turn struct {
	UserMessage      essay.Message `json:"userMessage"`
	AssistantMessage essay.Message `json:"assistantMessage"`
	Structured       bool          `json:"structured"`
	Advanced         bool          `json:"advanced"`
}

// State is the read-only view exposed to the UI.
type State struct {
	SessionID          string          `json:"sessionId"`
	Stage              essay.Stage     `json:"stage"`
	Skeleton           essay.Skeleton  `json:"skeleton"`
	CompletionPercent  int             `json:"completionPercent"`
	Complete           bool            `json:"complete"`
	Messages           []essay.Message `json:"messages"`
	Pending            bool            `json:"pending"`
	SuggestedNextSteps []string        `json:"suggestedNextSteps,omitempty"`
	Progress           *essay.Progress `json:"progress,omitempty"`
}

// Orchestrator coordinates one coaching conversation: it owns the message
// history and session identity, runs the extractors on every turn and drives
// the skeleton and the workflow stage.
type Orchestrator struct {
	tutor          Tutor
	store          SnapshotStore
	clientKey      string
	log            *logger.Logger
	now            func() time.Time
	newID          func() string
	persistTimeout time.Duration
	writer         *snapshotWriter

	mu          sync.Mutex
	sessionID   string
	sections    *SectionStore
	progression *Progression
	messages    []essay.Message
	pending     bool
	suggestions []string
	progress    *essay.Progress
}

// NewOrchestrator creates a session. When the store holds a snapshot for the
// client key, only its conversation id is reused.
func NewOrchestrator(ctx context.Context, opts Options) (*Orchestrator, error) {
	if opts.Tutor == nil {
		return nil, ErrTutorRequired
	}

	o := &Orchestrator{
		tutor:          opts.Tutor,
		store:          opts.Store,
		clientKey:      opts.ClientKey,
		log:            opts.Logger,
		now:            opts.Now,
		newID:          opts.NewID,
		persistTimeout: opts.PersistTimeout,
	}
	if o.clientKey == "" {
		o.clientKey = defaultClientKey
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.persistTimeout <= 0 {
		o.persistTimeout = defaultPersistTimeout
	}
	if o.store != nil {
		o.writer = newSnapshotWriter(o.store, o.clientKey, o.persistTimeout, o.log)
	}

	sessionID := o.restoreSessionID(ctx)
	if sessionID == "" {
		sessionID = o.newID()
	}

	o.mu.Lock()
	o.resetLocked(sessionID)
	o.mu.Unlock()

	o.log.Info("coaching session started", "session_id", sessionID, "client_key", o.clientKey)
	return o, nil
}

// SessionID returns the id of the active session.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// SendUserMessage records the student's message, extracts what it can from
// it, and asks the tutor for a reply. Blank text and concurrent sends are
// rejected without touching any state.
func (o *Orchestrator) SendUserMessage(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)

	o.mu.Lock()
	if text == "" {
		o.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	if o.pending {
		o.mu.Unlock()
		return nil, ErrRequestPending
	}

	stage := o.progression.Current()
	userMsg := o.newMessageLocked(essay.RoleUser, text, stage)
	o.messages = append(o.messages, userMsg)

	if value, ok := extract.Heuristic(text, stage); ok {
		o.sections.ApplyHeuristic(stage, value)
	}
	advanced := o.progression.Advance(o.sections.Snapshot())

	o.pending = true
	sessionID := o.sessionID
	req := essay.TutorRequest{
		SessionID: sessionID,
		MessageID: userMsg.ID,
		Message:   text,
		Stage:     string(o.progression.Current()),
		Context:   o.sections.Snapshot().Context(),
	}
	o.mu.Unlock()

	log := o.log.With("session_id", sessionID, "message_id", userMsg.ID, "stage", req.Stage)
	log.Debug("sending message to tutor")

	resp, err := o.tutor.Reply(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("empty response")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sessionID != sessionID {
		log.Warn("discarding tutor response for a restarted session", "current_session_id", o.sessionID)
		return nil, ErrStaleResponse
	}
	o.pending = false

	if err != nil {
		log.Error("tutor request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTutorUnavailable, err)
	}

	replyStage, ok := essay.ParseStage(resp.Stage)
	if !ok {
		replyStage = o.progression.Current()
	}
	display := extract.Sanitize(resp.Response)
	if display == "" {
		display = emptyReplyText
	}
	assistantMsg := o.newMessageLocked(essay.RoleAssistant, display, replyStage)
	o.messages = append(o.messages, assistantMsg)

	structured := false
	if partial, ok := extract.Structured(resp.Response); ok {
		o.sections.ApplyStructured(partial)
		structured = true
	} else {
		current := o.progression.Current()
		if value, ok := extract.Heuristic(resp.Response, current); ok {
			o.sections.ApplyHeuristic(current, value)
		}
	}
	if o.progression.Advance(o.sections.Snapshot()) {
		advanced = true
	}

	o.suggestions = append([]string(nil), resp.SuggestedNextSteps...)
	o.progress = nil
	if resp.Progress != nil {
		p := *resp.Progress
		o.progress = &p
	}

	log.Info("turn completed",
		"structured", structured,
		"advanced", advanced,
		"current_stage", o.progression.Current(),
		"completion", o.sections.CompletionPercent(),
	)
	o.persistLocked()

	return &Turn{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Structured:       structured,
		Advanced:         advanced,
	}, nil
}

// Restart discards the conversation and begins a new session with a fresh id.
func (o *Orchestrator) Restart(_ context.Context) State {
	o.mu.Lock()
	defer o.mu.Unlock()

	previous := o.sessionID
	o.resetLocked(o.newID())
	o.log.Info("coaching session restarted", "previous_session_id", previous, "session_id", o.sessionID)
	o.persistLocked()
	return o.stateLocked()
}

// State returns a snapshot of everything the UI renders.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

func (o *Orchestrator) resetLocked(sessionID string) {
	o.sessionID = sessionID
	o.sections = NewSectionStore()
	o.progression = NewProgression()
	o.pending = false
	o.suggestions = nil
	o.progress = nil
	o.messages = []essay.Message{
		o.newMessageLocked(essay.RoleAssistant, essay.WelcomeText(), essay.StageTopic),
	}
}

func (o *Orchestrator) newMessageLocked(role essay.Role, text string, stage essay.Stage) essay.Message {
	return essay.Message{
		ID:        o.newID(),
		Role:      role,
		Text:      text,
		Stage:     stage,
		Timestamp: o.now(),
	}
}

func (o *Orchestrator) stateLocked() State {
	skeleton := o.sections.Snapshot()
	var progress *essay.Progress
	if o.progress != nil {
		p := *o.progress
		progress = &p
	}
	return State{
		SessionID:          o.sessionID,
		Stage:              o.progression.Current(),
		Skeleton:           skeleton,
		CompletionPercent:  o.sections.CompletionPercent(),
		Complete:           o.sections.IsComplete(),
		Messages:           append([]essay.Message(nil), o.messages...),
		Pending:            o.pending,
		SuggestedNextSteps: append([]string(nil), o.suggestions...),
		Progress:           progress,
	}
}

func (o *Orchestrator) restoreSessionID(ctx context.Context) string {
	if o.store == nil {
		return ""
	}
	snap, ok, err := o.store.Load(ctx, o.clientKey)
	if err != nil {
		o.log.Warn("failed to load session snapshot", "client_key", o.clientKey, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(snap.ConversationID)
}

// persistLocked writes the snapshot in the background. Failures are logged
// and never reach the caller.
func (o *Orchestrator) persistLocked() {
	if o.writer == nil {
		return
	}
	o.writer.enqueue(essay.Snapshot{
		ConversationID: o.sessionID,
		Messages:       append([]essay.Message(nil), o.messages...),
		Stage:          o.progression.Current(),
		Skeleton:       o.sections.Snapshot(),
		SavedAt:        o.now(),
	})
}

// Flush waits for pending snapshot writes to reach the store.
func (o *Orchestrator) Flush(ctx context.Context) error {
	if o.writer == nil {
		return nil
	}
	return o.writer.flush(ctx)
}
