// ABOUTME: Conversation and Message data model with JSON field names of the persisted record
// ABOUTME: Title derivation and lastMessage mirroring live here so every mutation path shares them

package conversation

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title of a conversation before its first message
const DefaultTitle = "New Conversation"

// TitleMaxLen is how many characters of the first message become the title
const TitleMaxLen = 50

// Sender identifies who authored a message
type Sender string

// Sender constants
const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is one turn in a conversation. Messages are never edited after
// they are appended.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one chat thread. Messages are in insertion order, which is
// also display order; Timestamp is never used for ordering.
type Conversation struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Messages    []*Message `json:"messages"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastMessage string     `json:"lastMessage"`
}

// NewMessage creates a message with a time-ordered unique ID
func NewMessage(sender Sender, text string) *Message {
	return &Message{
		ID:        newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// newID returns a UUIDv7, falling back to a random UUID if the clock source fails
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// TitleFrom derives a conversation title from the first message text:
// its first TitleMaxLen characters, with no truncation marker.
func TitleFrom(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleMaxLen {
		return text
	}
	return string(runes[:TitleMaxLen])
}

// append adds msg, assigns the title on the first message and mirrors the
// text into LastMessage.
func (c *Conversation) append(msg *Message) {
	if len(c.Messages) == 0 {
		c.Title = TitleFrom(msg.Text)
	}
	c.Messages = append(c.Messages, msg)
	c.LastMessage = msg.Text
}

// clone returns a deep copy so callers never share state with the store
func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.Messages = make([]*Message, len(c.Messages))
	for i, m := range c.Messages {
		mc := *m
		cp.Messages[i] = &mc
	}
	return &cp
}
