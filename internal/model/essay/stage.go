package essay

import "strings"

// Stage is a position in the linear essay authoring workflow.
type Stage string

const (
	StageTopic        Stage = "topic"
	StageThesis       Stage = "thesis"
	StageIntroduction Stage = "introduction"
	StageDevelopment1 Stage = "development1"
	StageDevelopment2 Stage = "development2"
	StageConclusion   Stage = "conclusion"
	StageFinalize     Stage = "finalize"
)

var stageOrder = []Stage{
	StageTopic,
	StageThesis,
	StageIntroduction,
	StageDevelopment1,
	StageDevelopment2,
	StageConclusion,
	StageFinalize,
}

// Stages returns every stage in workflow order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// FieldStages returns the six stages that own a skeleton field.
func FieldStages() []Stage {
	return append([]Stage(nil), stageOrder[:len(stageOrder)-1]...)
}

// Index returns the position of the stage in the workflow, or -1 when unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the seven known stages.
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// HasField reports whether the stage owns a skeleton field. Finalize does not.
func (s Stage) HasField() bool {
	return s.Valid() && s != StageFinalize
}

// Next returns the following stage. Finalize is terminal and returns itself.
func (s Stage) Next() Stage {
	idx := s.Index()
	if idx < 0 || idx >= len(stageOrder)-1 {
		return s
	}
	return stageOrder[idx+1]
}

// ParseStage maps a raw stage name onto a Stage.
func ParseStage(raw string) (Stage, bool) {
	st := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !st.Valid() {
		return "", false
	}
	return st, true
}
