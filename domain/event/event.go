// Package event defines the events the core emits to live sessions.
// Event names are part of the transport contract with clients.
package event

import "chatify/domain"

type DomainEvent interface {
	Name() string
}

// Connected acknowledges a completed session setup.
type Connected struct{}

func (Connected) Name() string { return "connected" }

type UserOnline struct {
	UserID string
}

func (UserOnline) Name() string { return "user_online" }

type UserOffline struct {
	UserID   string
	LastSeen int64
}

func (UserOffline) Name() string { return "user_offline" }

type Typing struct {
	ChatID string
	UserID string
}

func (Typing) Name() string { return "typing" }

type StopTyping struct {
	ChatID string
	UserID string
}

func (StopTyping) Name() string { return "stop_typing" }

// MessageReceived carries the fully enriched message, system messages
// included.
type MessageReceived struct {
	Message domain.EnrichedMessage
}

func (MessageReceived) Name() string { return "message_received" }
