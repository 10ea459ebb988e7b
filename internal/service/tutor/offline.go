package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// Offline is a scripted tutor used when no chat model is configured. It
// replays the stage guidance and never commits content on its own.
type Offline struct {
	guidance essay.GuidanceStore
}

// NewOffline returns an offline tutor backed by the guidance table.
func NewOffline(guidance essay.GuidanceStore) *Offline {
	return &Offline{guidance: guidance}
}

// Reply answers with the guidance for the requested stage.
func (o *Offline) Reply(_ context.Context, req essay.TutorRequest) (*essay.TutorResponse, error) {
	stage, ok := essay.ParseStage(req.Stage)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", req.Stage)
	}
	g, ok := o.guidance.FindByStage(stage)
	if !ok {
		return nil, fmt.Errorf("no guidance for stage %s", stage)
	}

	var b strings.Builder
	b.WriteString("Here is a suggestion for the next step: ")
	b.WriteString(g.Prompt)
	for _, tip := range g.Tips {
		b.WriteString("\n- ")
		b.WriteString(tip)
	}

	return &essay.TutorResponse{
		ConversationID:     req.SessionID,
		Response:           b.String(),
		Stage:              string(stage),
		SuggestedNextSteps: append([]string(nil), g.Tips...),
		Progress:           progressFor(stage, req.Context),
	}, nil
}
