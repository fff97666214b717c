package store

// SenderID identifies who wrote a message.
type SenderID string

const (
	SenderUser     SenderID = "user"
	SenderPersonaA SenderID = "personaA"
	SenderPersonaB SenderID = "personaB"
)

// IsPersona reports whether the sender is one of the two personas.
func (s SenderID) IsPersona() bool {
	return s == SenderPersonaA || s == SenderPersonaB
}

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// Message is one entry of a thread. Ordering is append order; Timestamp is informational.
type Message struct {
	ID        string      `json:"id"`
	SenderID  SenderID    `json:"senderId"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
	Type      MessageType `json:"type"`
	ImageURL  string      `json:"imageUrl,omitempty"`
}
