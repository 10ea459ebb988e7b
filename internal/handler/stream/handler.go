package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	coachService "github.com/zhouzirui/essay-coach/backend/internal/service/coach"
	sessionService "github.com/zhouzirui/essay-coach/backend/internal/service/session"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
	"github.com/zhouzirui/essay-coach/backend/pkg/utils"
)

// ErrSessionNotFound is returned before any event is written.
var ErrSessionNotFound = errors.New("session not found")

// Handler delivers one coaching turn as Server-Sent Events
type Handler struct {
	sessions *sessionService.Service
	log      *logger.Logger
}

// New creates a new stream handler
func New(sessions *sessionService.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{sessions: sessions, log: log.With("handler", "stream")}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string              `json:"event"`
	SessionID string              `json:"sessionId,omitempty"`
	Stage     essay.Stage         `json:"stage,omitempty"`
	Message   *essay.Message      `json:"message,omitempty"`
	State     *coachService.State `json:"state,omitempty"`
	Finished  bool                `json:"finished,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// HandleStreamRequest runs one turn for the session and streams its outcome:
// start, the user message, the assistant message, the new state, then end.
// Failures after the stream opened are reported as an error event.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	orch, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return ErrSessionNotFound
	}

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		return err
	}

	if err := sse.SendEvent("start", StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Stage:     orch.State().Stage,
	}); err != nil {
		return err
	}

	turn, err := orch.SendUserMessage(ctx, userMessage)
	if err != nil {
		h.log.Warn("stream turn failed", "session_id", sessionID, "error", err)
		return sse.SendEvent("error", StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     err.Error(),
		})
	}

	state := orch.State()
	events := []StreamResponse{
		{Event: "message", SessionID: sessionID, Message: &turn.UserMessage},
		{Event: "message", SessionID: sessionID, Message: &turn.AssistantMessage},
		{Event: "state", SessionID: state.SessionID, Stage: state.Stage, State: &state},
		{Event: "end", SessionID: sessionID, Finished: true},
	}
	for _, ev := range events {
		if err := sse.SendEvent(ev.Event, ev); err != nil {
			return fmt.Errorf("send %s event: %w", ev.Event, err)
		}
	}

	h.log.Debug("stream turn completed", "session_id", sessionID, "stage", state.Stage)
	return nil
}
