package store

import "fmt"

// ChatMode selects the thread that receives a user message and the personas that reply.
type ChatMode string

const (
	ChatModePrivateA ChatMode = "privateA"
	ChatModePrivateB ChatMode = "privateB"
	ChatModeGroup    ChatMode = "group"
)

// ChatModes lists the three fixed threads in display order.
var ChatModes = []ChatMode{ChatModeGroup, ChatModePrivateA, ChatModePrivateB}

// ParseChatMode validates a mode name coming from a caller.
func ParseChatMode(s string) (ChatMode, error) {
	switch m := ChatMode(s); m {
	case ChatModePrivateA, ChatModePrivateB, ChatModeGroup:
		return m, nil
	default:
		return "", fmt.Errorf("unknown chat mode: %q", s)
	}
}

// Responders returns, in reply order, the personas that answer a user message in this mode.
func (m ChatMode) Responders() []SenderID {
	switch m {
	case ChatModePrivateA:
		return []SenderID{SenderPersonaA}
	case ChatModePrivateB:
		return []SenderID{SenderPersonaB}
	case ChatModeGroup:
		return []SenderID{SenderPersonaA, SenderPersonaB}
	default:
		return nil
	}
}

// IsGroup reports whether the mode is the three-party thread.
func (m ChatMode) IsGroup() bool {
	return m == ChatModeGroup
}

// ThreadSummary is the chat list entry for one thread.
// Count covers every message; Unread counts persona replies only, as the chat list badge does.
type ThreadSummary struct {
	Mode        ChatMode `json:"mode"`
	Name        string   `json:"name"`
	LastMessage string   `json:"lastMessage,omitempty"`
	LastTime    int64    `json:"lastTime,omitempty"`
	Count       int      `json:"count"`
	Unread      int      `json:"unread"`
}

// Logical keys in the conversation store.
const (
	KeyPersonaA      = "personaA"
	KeyPersonaB      = "personaB"
	KeyMessagesA     = "messagesA"
	KeyMessagesB     = "messagesB"
	KeyMessagesGroup = "messagesGroup"
	KeyAPIConfig     = "apiConfig"
	KeySchemaVersion = "system:schema_version"
)

func threadKey(mode ChatMode) (string, error) {
	switch mode {
	case ChatModePrivateA:
		return KeyMessagesA, nil
	case ChatModePrivateB:
		return KeyMessagesB, nil
	case ChatModeGroup:
		return KeyMessagesGroup, nil
	default:
		return "", fmt.Errorf("unknown chat mode: %q", mode)
	}
}

func personaKey(slot PersonaSlot) (string, error) {
	switch slot {
	case PersonaSlotA:
		return KeyPersonaA, nil
	case PersonaSlotB:
		return KeyPersonaB, nil
	default:
		return "", fmt.Errorf("unknown persona slot: %q", slot)
	}
}
