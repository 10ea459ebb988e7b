package essay

import "time"

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable turn of the coaching conversation, tagged with the
// stage that was active when it was created.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Stage     Stage     `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is what the persistence collaborator stores after a turn.
type Snapshot struct {
	ConversationID string    `json:"conversationId"`
	Messages       []Message `json:"messages"`
	Stage          Stage     `json:"stage"`
	Skeleton       Skeleton  `json:"skeleton"`
	SavedAt        time.Time `json:"savedAt"`
}
