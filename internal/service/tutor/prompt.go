package tutor

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// StagePrompt defines what the tutor works on during one stage.
type StagePrompt struct {
	Goal  string
	Rules []string
}

// PromptManager builds the system prompt for each stage.
type PromptManager struct {
	stages map[essay.Stage]*StagePrompt
}

// NewPromptManager creates a prompt manager with the built-in stage prompts.
func NewPromptManager() *PromptManager {
	pm := &PromptManager{stages: make(map[essay.Stage]*StagePrompt)}
	pm.loadDefaultPrompts()
	return pm
}

// GetStagePrompt returns the prompt definition for a stage.
func (pm *PromptManager) GetStagePrompt(stage essay.Stage) (*StagePrompt, error) {
	p, ok := pm.stages[stage]
	if !ok {
		return nil, fmt.Errorf("stage prompt not found: %s", stage)
	}
	return p, nil
}

// BuildSystemPrompt describes the tutor role, the current stage, the plan so
// far and the fragment format the reply must carry.
func (pm *PromptManager) BuildSystemPrompt(stage essay.Stage, ctx essay.TutorContext) string {
	p, err := pm.GetStagePrompt(stage)
	if err != nil {
		p = &StagePrompt{Goal: "Help the student with the essay plan."}
	}

	return fmt.Sprintf(`You are an essay-writing coach. You guide the student through planning an argumentative essay, one part at a time: topic, thesis, introduction, first development paragraph, second development paragraph, conclusion.

Current stage: %s
Goal: %s

Plan so far:
%s

Rules:
- %s
- Never write the student's content for them; ask questions and give feedback.
- Keep the reply short, at most two paragraphs.

Output format:
When the student commits content for any part, end the reply with one fenced block:
%s
Include only the keys the student actually committed. Use the keys topic, thesis, introduction, development1, development2, conclusion.`,
		stage,
		p.Goal,
		describePlan(ctx),
		strings.Join(p.Rules, "\n- "),
		"```json\n{\"thesis\": \"...\"}\n```",
	)
}

func describePlan(ctx essay.TutorContext) string {
	var lines []string
	if ctx.Topic != "" {
		lines = append(lines, "- topic: "+ctx.Topic)
	}
	if ctx.Thesis != "" {
		lines = append(lines, "- thesis: "+ctx.Thesis)
	}
	for i, p := range ctx.Paragraphs {
		lines = append(lines, fmt.Sprintf("- paragraph %d: %s", i+1, p))
	}
	if len(lines) == 0 {
		return "(nothing yet)"
	}
	return strings.Join(lines, "\n")
}

func (pm *PromptManager) loadDefaultPrompts() {
	pm.stages[essay.StageTopic] = &StagePrompt{
		Goal: "Get the student to name the topic of the essay in one sentence.",
		Rules: []string{
			"If the student pastes an exam prompt, ask them to restate it in their own words",
			"Push vague topics towards something specific enough to argue about",
		},
	}
	pm.stages[essay.StageThesis] = &StagePrompt{
		Goal: "Get the student to state a debatable position about the topic.",
		Rules: []string{
			"A fact is not a thesis; ask what they defend",
			"Check that the thesis answers the topic",
		},
	}
	pm.stages[essay.StageIntroduction] = &StagePrompt{
		Goal: "Help the student plan an introduction that contextualizes the topic and presents the thesis.",
		Rules: []string{
			"Ask for a context, a fact or a reference to open with",
			"Make sure the thesis appears at the end of the introduction",
		},
	}
	pm.stages[essay.StageDevelopment1] = &StagePrompt{
		Goal: "Help the student plan the first argument and its evidence.",
		Rules: []string{
			"One argument per paragraph",
			"Ask for evidence: data, history, a law or an example from the real world",
		},
	}
	pm.stages[essay.StageDevelopment2] = &StagePrompt{
		Goal: "Help the student plan a second, different argument.",
		Rules: []string{
			"Reject arguments that repeat the first one",
			"Ask how the argument connects back to the thesis",
		},
	}
	pm.stages[essay.StageConclusion] = &StagePrompt{
		Goal: "Help the student plan a conclusion with a concrete intervention proposal.",
		Rules: []string{
			"The proposal should say who acts, what they do and how",
			"No new arguments in the conclusion",
		},
	}
	pm.stages[essay.StageFinalize] = &StagePrompt{
		Goal: "The plan is complete. Review it with the student and encourage them to write the full text.",
		Rules: []string{
			"Point out the weakest part of the plan, if any",
		},
	}
}
