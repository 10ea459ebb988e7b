package tutor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
)

const defaultHistoryLimit = 10

// Config tunes the model-backed tutor.
type Config struct {
	HistoryLimit int
	Timeout      time.Duration
}

// Service answers tutor requests with a chat model behind an eino chain.
type Service struct {
	chain    compose.Runnable[map[string]any, *schema.Message]
	guidance essay.GuidanceStore
	prompts  *PromptManager
	cfg      Config
	log      *logger.Logger

	mu          sync.Mutex
	transcripts map[string][]*schema.Message
	// forgotten holds ids whose conversation was restarted; a reply still in
	// flight for one of them must not leave a transcript behind.
	forgotten map[string]struct{}
}

// NewService compiles the tutor chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, guidance essay.GuidanceStore, cfg Config, log *logger.Logger) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if log == nil {
		log = logger.Nop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile tutor chain: %w", err)
	}

	return &Service{
		chain:       runnable,
		guidance:    guidance,
		prompts:     NewPromptManager(),
		cfg:         cfg,
		log:         log.With("service", "tutor"),
		transcripts: make(map[string][]*schema.Message),
		forgotten:   make(map[string]struct{}),
	}, nil
}

// Reply runs one tutoring turn.
func (s *Service) Reply(ctx context.Context, req essay.TutorRequest) (*essay.TutorResponse, error) {
	stage, ok := essay.ParseStage(req.Stage)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", req.Stage)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	input := map[string]any{
		"system":  s.prompts.BuildSystemPrompt(stage, req.Context),
		"history": s.history(req.SessionID),
		"query":   req.Message,
	}

	msg, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run tutor chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, fmt.Errorf("tutor model returned an empty reply")
	}

	s.remember(req.SessionID, schema.UserMessage(req.Message), schema.AssistantMessage(msg.Content, nil))
	s.log.Debug("generated tutor reply", "session_id", req.SessionID, "stage", stage, "length", len(msg.Content))

	return &essay.TutorResponse{
		ConversationID:     req.SessionID,
		Response:           msg.Content,
		Stage:              string(stage),
		SuggestedNextSteps: s.nextSteps(stage),
		Progress:           progressFor(stage, req.Context),
	}, nil
}

// Forget drops the transcript kept for a conversation.
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, sessionID)
	s.forgotten[sessionID] = struct{}{}
}

func (s *Service) history(sessionID string) []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*schema.Message(nil), s.transcripts[sessionID]...)
}

func (s *Service) remember(sessionID string, msgs ...*schema.Message) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.forgotten[sessionID]; gone {
		return
	}
	transcript := append(s.transcripts[sessionID], msgs...)
	if len(transcript) > s.cfg.HistoryLimit {
		transcript = transcript[len(transcript)-s.cfg.HistoryLimit:]
	}
	s.transcripts[sessionID] = transcript
}

func (s *Service) nextSteps(stage essay.Stage) []string {
	if s.guidance == nil {
		return nil
	}
	g, ok := s.guidance.FindByStage(stage)
	if !ok {
		return nil
	}
	return append([]string(nil), g.Tips...)
}

func progressFor(stage essay.Stage, ctx essay.TutorContext) *essay.Progress {
	filled := len(ctx.Paragraphs)
	if ctx.Topic != "" {
		filled++
	}
	if ctx.Thesis != "" {
		filled++
	}
	total := len(essay.FieldStages())
	if filled > total {
		filled = total
	}
	return &essay.Progress{
		Stage:   string(stage),
		Percent: int(math.Round(float64(filled) / float64(total) * 100)),
	}
}
