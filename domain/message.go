package domain

import "time"

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageVideo  MessageType = "video"
	MessageSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageSystem:
		return true
	}
	return false
}

// Reaction is one (user, emoji) pair on a message. A user may react with any
// number of distinct emojis, but at most once per emoji.
type Reaction struct {
	UserID string
	Emoji  string
}

// Message is a chat event. ChatID never changes after creation. An empty
// SenderID denotes a system-generated message. IsDeleted hides the content
// for readers without erasing it server-side.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Content   string
	Type      MessageType
	ReplyTo   string
	Reactions []Reaction
	IsDeleted bool
	ReadBy    []string
	CreatedAt time.Time
}

func (m Message) IsSystem() bool { return m.SenderID == "" }

// EnrichedMessage is a Message with its reference fields resolved to
// display-relevant subsets, as delivered to sessions and request callers.
type EnrichedMessage struct {
	Message
	Sender       *Profile
	Chat         *Chat
	ReplyContext *Message
}
