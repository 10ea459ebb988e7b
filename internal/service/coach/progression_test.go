package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

func fullSkeleton() essay.Skeleton {
	var sk essay.Skeleton
	for _, st := range essay.FieldStages() {
		sk = sk.With(st, "content for "+string(st))
	}
	return sk
}

func TestProgressionAdvancesOneStepAtATime(t *testing.T) {
	p := NewProgression()
	assert.Equal(t, essay.StageTopic, p.Current())

	sk := fullSkeleton()
	assert.True(t, p.Advance(sk))
	assert.Equal(t, essay.StageThesis, p.Current(), "must not skip even when every field is filled")

	for p.Advance(sk) {
	}
	assert.Equal(t, essay.StageFinalize, p.Current())
	assert.False(t, p.Advance(sk))
	assert.Equal(t, essay.StageFinalize, p.Current())
}

func TestProgressionWaitsForCurrentField(t *testing.T) {
	p := NewProgression()
	sk := essay.Skeleton{Thesis: "filled out of order"}
	assert.False(t, p.Advance(sk))
	assert.Equal(t, essay.StageTopic, p.Current())
}

func TestProgressionIsMonotonic(t *testing.T) {
	p := NewProgression()
	var sk essay.Skeleton
	last := p.Current().Index()

	fills := []essay.Stage{
		essay.StageThesis, essay.StageTopic, essay.StageConclusion,
		essay.StageIntroduction, essay.StageDevelopment2, essay.StageDevelopment1,
	}
	for _, st := range fills {
		sk = sk.With(st, "text")
		for i := 0; i < 3; i++ {
			p.Advance(sk)
			idx := p.Current().Index()
			assert.GreaterOrEqual(t, idx, last)
			last = idx
		}
	}
	// an emptied skeleton never pulls the stage back
	p.Advance(essay.Skeleton{})
	assert.Equal(t, last, p.Current().Index())
}
