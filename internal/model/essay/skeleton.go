package essay

import "strings"

// Skeleton is the six-field structured plan of an essay.
type Skeleton struct {
	Topic        string `json:"topic"`
	Thesis       string `json:"thesis"`
	Introduction string `json:"introduction"`
	Development1 string `json:"development1"`
	Development2 string `json:"development2"`
	Conclusion   string `json:"conclusion"`
}

// Partial is a sparse skeleton update. A missing key means the field was not
// present in the source, which is different from an empty value.
type Partial map[Stage]string

// Get returns the field owned by stage.
func (s Skeleton) Get(stage Stage) string {
	switch stage {
	case StageTopic:
		return s.Topic
	case StageThesis:
		return s.Thesis
	case StageIntroduction:
		return s.Introduction
	case StageDevelopment1:
		return s.Development1
	case StageDevelopment2:
		return s.Development2
	case StageConclusion:
		return s.Conclusion
	default:
		return ""
	}
}

// With returns a copy of the skeleton with the field owned by stage replaced.
// Stages without a field leave the copy unchanged.
func (s Skeleton) With(stage Stage, value string) Skeleton {
	switch stage {
	case StageTopic:
		s.Topic = value
	case StageThesis:
		s.Thesis = value
	case StageIntroduction:
		s.Introduction = value
	case StageDevelopment1:
		s.Development1 = value
	case StageDevelopment2:
		s.Development2 = value
	case StageConclusion:
		s.Conclusion = value
	}
	return s
}

// Filled counts the non-empty fields.
func (s Skeleton) Filled() int {
	count := 0
	for _, stage := range FieldStages() {
		if strings.TrimSpace(s.Get(stage)) != "" {
			count++
		}
	}
	return count
}

// Context builds the tutor request context from the filled fields.
func (s Skeleton) Context() TutorContext {
	ctx := TutorContext{
		Topic:  s.Topic,
		Thesis: s.Thesis,
	}
	for _, p := range []string{s.Introduction, s.Development1, s.Development2, s.Conclusion} {
		if strings.TrimSpace(p) != "" {
			ctx.Paragraphs = append(ctx.Paragraphs, p)
		}
	}
	return ctx
}
