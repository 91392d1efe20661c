// Package services implements the membership engine, the message pipeline,
// and the surrounding user, status, and call operations. Services validate
// and persist synchronously; everything reaching live sessions goes through
// the delivery router and is fire and forget.
package services

import (
	"log/slog"
	"time"

	"chatify/domain"
	"chatify/domain/event"
	"chatify/repositories"
	"chatify/runtime/workers"

	"github.com/google/uuid"
)

// Deliverer is the router surface the services depend on.
type Deliverer interface {
	DeliverToRecipients(evt event.DomainEvent, recipients []workers.Recipient)
	DeliverToUser(userID string, evt event.DomainEvent)
	Broadcast(excludeUserID string, evt event.DomainEvent)
}

// SystemMessenger turns accumulated change descriptors into one sender-less
// system message per logical action and pushes it through the same
// persistence and delivery path as a regular message.
type SystemMessenger struct {
	messages repositories.IMessageRepository
	chats    repositories.IChatRepository
	deliver  Deliverer
	log      *slog.Logger
}

func NewSystemMessenger(
	messages repositories.IMessageRepository,
	chats repositories.IChatRepository,
	deliver Deliverer,
	log *slog.Logger,
) *SystemMessenger {
	return &SystemMessenger{messages: messages, chats: chats, deliver: deliver, log: log}
}

// Announce persists and delivers the announcement to the chat's members.
// The triggering mutation has already committed, so failures here are
// logged, never propagated back to the caller.
func (s *SystemMessenger) Announce(chat domain.Chat, ann *domain.Announcement) {
	if ann.Empty() {
		return
	}
	msg := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Content:   ann.Render(" "),
		Type:      domain.MessageSystem,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Store(msg); err != nil {
		s.log.Error("Failed to persist system message", "chat_id", chat.ID, "error", err)
		return
	}
	if err := s.chats.SetLatestMessage(chat.ID, msg.ID); err != nil {
		s.log.Warn("Failed to update latest message cache", "chat_id", chat.ID, "error", err)
	}

	enriched := domain.EnrichedMessage{Message: msg, Chat: &chat}
	recipients := make([]workers.Recipient, 0, len(chat.Users))
	for _, userID := range chat.Users {
		recipients = append(recipients, workers.Recipient{UserID: userID})
	}
	s.deliver.DeliverToRecipients(event.MessageReceived{Message: enriched}, recipients)
}
