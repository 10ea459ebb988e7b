package essay

// Guidance is the static coaching copy shown for a stage.
type Guidance struct {
	Stage       Stage    `json:"stage"`
	Title       string   `json:"title"`
	Prompt      string   `json:"prompt"`
	Description string   `json:"description,omitempty"`
	Tips        []string `json:"tips,omitempty"`
}

// GuidanceStore exposes the guidance table to handlers and the tutor.
type GuidanceStore interface {
	List() []Guidance
	FindByStage(stage Stage) (Guidance, bool)
}

// MemoryGuidance implements GuidanceStore over a fixed slice.
type MemoryGuidance struct {
	items []Guidance
}

// NewMemoryGuidance returns a MemoryGuidance preloaded with the supplied entries.
func NewMemoryGuidance(items []Guidance) *MemoryGuidance {
	return &MemoryGuidance{items: append([]Guidance(nil), items...)}
}

// List returns the guidance entries in workflow order.
func (s *MemoryGuidance) List() []Guidance {
	return append([]Guidance(nil), s.items...)
}

// FindByStage looks up the entry for a stage.
func (s *MemoryGuidance) FindByStage(stage Stage) (Guidance, bool) {
	for _, item := range s.items {
		if item.Stage == stage {
			return item, true
		}
	}
	return Guidance{}, false
}

// GuidanceFor returns the built-in entry for a stage.
func GuidanceFor(stage Stage) (Guidance, bool) {
	return defaultGuidance.FindByStage(stage)
}

// WelcomeText is the opening assistant message of every session.
func WelcomeText() string {
	g, _ := GuidanceFor(StageTopic)
	return g.Prompt
}

var defaultGuidance = NewMemoryGuidance(SeedGuidance())

// SeedGuidance provides the built-in guidance for all seven stages.
func SeedGuidance() []Guidance {
	return []Guidance{
		{
			Stage:       StageTopic,
			Title:       "Choose the topic",
			Prompt:      "Hi! Let's plan your essay together. What topic are you going to write about?",
			Description: "Name the subject of the essay in one clear sentence.",
			Tips: []string{
				"Restate the prompt in your own words",
				"Keep it specific enough to argue about",
			},
		},
		{
			Stage:       StageThesis,
			Title:       "State your thesis",
			Prompt:      "What position do you defend about this topic?",
			Description: "The thesis is the opinion the whole essay will prove.",
			Tips: []string{
				"Start with \"I defend that...\"",
				"Make it debatable, not a fact",
			},
		},
		{
			Stage:       StageIntroduction,
			Title:       "Write the introduction",
			Prompt:      "How will you introduce the topic and present your thesis?",
			Description: "Give context, present the problem and close with the thesis.",
			Tips: []string{
				"Open with context or a relevant fact",
				"End the paragraph with your thesis",
			},
		},
		{
			Stage:       StageDevelopment1,
			Title:       "First development paragraph",
			Prompt:      "What is the first argument that supports your thesis?",
			Description: "Present one argument and back it with evidence.",
			Tips: []string{
				"One argument per paragraph",
				"Support it with data, history or an example",
			},
		},
		{
			Stage:       StageDevelopment2,
			Title:       "Second development paragraph",
			Prompt:      "What is your second argument?",
			Description: "Bring a different angle that also supports the thesis.",
			Tips: []string{
				"Avoid repeating the first argument",
				"Link it back to the thesis",
			},
		},
		{
			Stage:       StageConclusion,
			Title:       "Conclude",
			Prompt:      "How will you conclude the essay and what solution do you propose?",
			Description: "Retake the thesis and propose a concrete intervention.",
			Tips: []string{
				"Say who acts, what they do and how",
				"Do not introduce new arguments",
			},
		},
		{
			Stage:       StageFinalize,
			Title:       "Finalize",
			Prompt:      "Your essay structure is complete. Review it and start writing the full text.",
			Description: "All six parts are planned.",
		},
	}
}
