package coach

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/essay-coach/backend/internal/analysis/extract"
	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// SectionStore holds the essay skeleton. The structured path may overwrite
// any field; the heuristic path only fills empty ones.
type SectionStore struct {
	skeleton essay.Skeleton
}

// NewSectionStore returns an empty store.
func NewSectionStore() *SectionStore {
	return &SectionStore{}
}

// ApplyStructured sets every non-empty field present in partial. It reports
// whether any field changed.
func (s *SectionStore) ApplyStructured(partial essay.Partial) bool {
	changed := false
	for stage, value := range partial {
		if !stage.HasField() || strings.TrimSpace(value) == "" {
			continue
		}
		if s.skeleton.Get(stage) != value {
			s.skeleton = s.skeleton.With(stage, value)
			changed = true
		}
	}
	return changed
}

// ApplyHeuristic fills the field of stage when it is still empty and the text
// is longer than the stage minimum.
func (s *SectionStore) ApplyHeuristic(stage essay.Stage, text string) bool {
	rule, ok := extract.RuleFor(stage)
	if !ok {
		return false
	}
	if strings.TrimSpace(s.skeleton.Get(stage)) != "" {
		return false
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= rule.MinLength {
		return false
	}
	s.skeleton = s.skeleton.With(stage, text)
	return true
}

// IsComplete reports whether all six fields are filled.
func (s *SectionStore) IsComplete() bool {
	return s.skeleton.Filled() == len(essay.FieldStages())
}

// CompletionPercent is the share of filled fields, rounded to an integer.
func (s *SectionStore) CompletionPercent() int {
	return completionPercent(s.skeleton)
}

// Snapshot returns a copy of the skeleton.
func (s *SectionStore) Snapshot() essay.Skeleton {
	return s.skeleton
}

func completionPercent(sk essay.Skeleton) int {
	total := len(essay.FieldStages())
	return int(math.Round(float64(sk.Filled()) / float64(total) * 100))
}
