package session

import (
	"errors"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrEmptyContent is returned when an empty message is appended.
var ErrEmptyContent = errors.New("session: message content is empty")

// Message represents a single chat turn. Timestamp is local bookkeeping
// and is never sent to the backend.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"-"`
}

// Session holds the metadata of a chat session.
type Session struct {
	ID        string
	StartTime time.Time
	Model     string
}

// Conversation is the ordered, append-only log of turns for one session.
// Turns are never reordered or mutated in place; the log is cleared only
// through Reset.
type Conversation struct {
	messages []Message
}

// NewConversation creates a conversation seeded with history, which may
// be nil for a fresh session.
func NewConversation(history []Message) *Conversation {
	c := &Conversation{}
	c.messages = append(c.messages, history...)
	return c
}

// AppendUser appends a user turn.
func (c *Conversation) AppendUser(content string) error {
	return c.append(RoleUser, content)
}

// AppendAssistant appends an assistant turn.
func (c *Conversation) AppendAssistant(content string) error {
	return c.append(RoleAssistant, content)
}

func (c *Conversation) append(role Role, content string) error {
	if content == "" {
		return ErrEmptyContent
	}
	c.messages = append(c.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	return nil
}

// Snapshot returns a copy of the full history in order. Mutating the
// returned slice does not affect the conversation.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Reset clears all turns. Used only on an explicit command, never
// automatically.
func (c *Conversation) Reset() {
	c.messages = nil
}
