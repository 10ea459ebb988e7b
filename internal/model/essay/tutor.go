package essay

// TutorContext is the skeleton summary sent along with every tutor request.
type TutorContext struct {
	Topic      string   `json:"topic,omitempty"`
	Thesis     string   `json:"thesis,omitempty"`
	Paragraphs []string `json:"paragraphs,omitempty"`
}

// TutorRequest is the payload sent to the tutoring service.
type TutorRequest struct {
	SessionID string       `json:"sessionId,omitempty"`
	MessageID string       `json:"messageId"`
	Message   string       `json:"message"`
	Stage     string       `json:"stage"`
	Context   TutorContext `json:"context"`
}

// Progress is the service's own view of how far the essay is.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// TutorResponse is what the tutoring service answers. Response is free text
// that may embed one fenced JSON fragment with skeleton fields.
type TutorResponse struct {
	ConversationID     string    `json:"conversationId"`
	Response           string    `json:"response"`
	Stage              string    `json:"stage"`
	SuggestedNextSteps []string  `json:"suggestedNextSteps,omitempty"`
	Progress           *Progress `json:"progress,omitempty"`
}
