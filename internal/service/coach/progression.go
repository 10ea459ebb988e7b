package coach

import (
	"strings"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// Progression is the seven-state authoring workflow. It only moves forward,
// one stage per check.
type Progression struct {
	current essay.Stage
}

// NewProgression starts at the topic stage.
func NewProgression() *Progression {
	return &Progression{current: essay.StageTopic}
}

// Current returns the active stage.
func (p *Progression) Current() essay.Stage {
	return p.current
}

// Advance moves one stage forward when the field of the current stage is
// filled in sk. Finalize never advances.
func (p *Progression) Advance(sk essay.Skeleton) bool {
	if !p.current.HasField() {
		return false
	}
	if strings.TrimSpace(sk.Get(p.current)) == "" {
		return false
	}
	p.current = p.current.Next()
	return true
}
