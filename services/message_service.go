//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"log/slog"
	"strings"
	"time"

	"chatify/domain"
	"chatify/domain/event"
	"chatify/errors"
	"chatify/repositories"
	"chatify/runtime/workers"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageService interface {
	PostMessage(actorID, chatID, content string, msgType domain.MessageType, replyTo string) (domain.EnrichedMessage, error)
	ListMessages(actorID, chatID string, cursor *string) ([]domain.EnrichedMessage, *string, error)
	ReactToMessage(actorID, messageID, emoji string) (domain.Message, error)
	SoftDeleteMessage(actorID, messageID string) (domain.Message, error)
	MarkRead(actorID, messageID string) error
}

// MessageService is the message pipeline: validate, persist, enrich, then
// hand off to delivery. Persistence failures abort the operation; delivery
// failures never do.
type MessageService struct {
	messages repositories.IMessageRepository
	chats    repositories.IChatRepository
	users    repositories.IUserRepository
	deliver  Deliverer
	log      *slog.Logger
}

func NewMessageService(
	messages repositories.IMessageRepository,
	chats repositories.IChatRepository,
	users repositories.IUserRepository,
	deliver Deliverer,
	log *slog.Logger,
) *MessageService {
	return &MessageService{messages: messages, chats: chats, users: users, deliver: deliver, log: log}
}

func (s *MessageService) PostMessage(actorID, chatID, content string, msgType domain.MessageType, replyTo string) (domain.EnrichedMessage, error) {
	if strings.TrimSpace(content) == "" {
		return domain.EnrichedMessage{}, errors.Validationf("message content is required")
	}
	if !msgType.Valid() || msgType == domain.MessageSystem {
		return domain.EnrichedMessage{}, errors.Validationf("invalid message type %q", msgType)
	}

	chat, err := s.chats.Get(chatID)
	if err != nil {
		return domain.EnrichedMessage{}, err
	}
	if !chat.HasMember(actorID) {
		return domain.EnrichedMessage{}, errors.ErrNotMember
	}
	if chat.IsGroup {
		group, err := s.chats.GetGroup(chatID)
		if err != nil {
			return domain.EnrichedMessage{}, err
		}
		if group.Settings.OnlyAdminsPost && !group.IsAdmin(actorID) {
			return domain.EnrichedMessage{}, errors.ErrAdminsOnly
		}
	}

	var replyContext *domain.Message
	if replyTo != "" {
		parent, err := s.messages.Get(replyTo)
		if err != nil {
			return domain.EnrichedMessage{}, err
		}
		if parent.ChatID != chatID {
			return domain.EnrichedMessage{}, errors.Validationf("reply target belongs to another chat")
		}
		replyContext = &parent
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  actorID,
		Content:   content,
		Type:      msgType,
		ReplyTo:   replyTo,
		ReadBy:    []string{actorID},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Store(msg); err != nil {
		return domain.EnrichedMessage{}, err
	}
	// Best-effort cache: readers tolerate a stale latest message, so a
	// failure here must not fail the send.
	if err := s.chats.SetLatestMessage(chatID, msg.ID); err != nil {
		s.log.Warn("Failed to update latest message cache", "chat_id", chatID, "error", err)
	}

	members, err := s.users.GetMany(chat.Users)
	if err != nil {
		s.log.Warn("Failed to load members for delivery", "chat_id", chatID, "error", err)
	}

	enriched := domain.EnrichedMessage{Message: msg, Chat: &chat, ReplyContext: replyContext}
	for _, member := range members {
		if member.ID == actorID {
			p := member.Profile()
			enriched.Sender = &p
			break
		}
	}

	s.deliver.DeliverToRecipients(event.MessageReceived{Message: enriched}, s.recipients(chat, members, enriched))
	return enriched, nil
}

// recipients targets every chat member. The sender's own sessions are
// included so their other devices stay in sync. Members without a live
// session fall back to a push notification unless they muted the chat or
// have no registered device token.
func (s *MessageService) recipients(chat domain.Chat, members []domain.User, msg domain.EnrichedMessage) []workers.Recipient {
	recipients := make([]workers.Recipient, 0, len(members))
	for _, member := range members {
		rec := workers.Recipient{UserID: member.ID}
		muted := lo.Contains(chat.MutedBy, member.ID)
		if member.ID != msg.SenderID && member.FCMToken != "" && !muted {
			rec.Push = &workers.Push{
				Token: member.FCMToken,
				Title: pushTitle(msg),
				Body:  pushBody(msg.Message),
				Data:  map[string]string{"chat_id": chat.ID, "message_id": msg.ID},
			}
		}
		recipients = append(recipients, rec)
	}
	return recipients
}

func pushTitle(msg domain.EnrichedMessage) string {
	if msg.Sender != nil {
		return strings.TrimSpace(msg.Sender.FirstName + " " + msg.Sender.LastName)
	}
	return "New message"
}

func pushBody(msg domain.Message) string {
	switch msg.Type {
	case domain.MessageImage:
		return "Sent a photo"
	case domain.MessageVideo:
		return "Sent a video"
	default:
		return msg.Content
	}
}

// ListMessages pages through a chat's history, newest first, resolving the
// sender of each message to a display profile.
func (s *MessageService) ListMessages(actorID, chatID string, cursor *string) ([]domain.EnrichedMessage, *string, error) {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return nil, nil, err
	}
	if !chat.HasMember(actorID) {
		return nil, nil, errors.ErrNotMember
	}
	messages, next, err := s.messages.List(chatID, cursor)
	if err != nil {
		return nil, nil, err
	}

	senderIDs := lo.Uniq(lo.FilterMap(messages, func(m domain.Message, _ int) (string, bool) {
		return m.SenderID, m.SenderID != ""
	}))
	senders, err := s.users.GetMany(senderIDs)
	if err != nil {
		return nil, nil, err
	}
	profiles := make(map[string]domain.Profile, len(senders))
	for _, sender := range senders {
		profiles[sender.ID] = sender.Profile()
	}

	enriched := make([]domain.EnrichedMessage, 0, len(messages))
	for _, msg := range messages {
		e := domain.EnrichedMessage{Message: msg}
		if profile, ok := profiles[msg.SenderID]; ok {
			e.Sender = &profile
		}
		enriched = append(enriched, e)
	}
	return enriched, next, nil
}

// ReactToMessage toggles the (actor, emoji) reaction: present removes,
// absent appends. There is no limit on distinct emojis per user.
func (s *MessageService) ReactToMessage(actorID, messageID, emoji string) (domain.Message, error) {
	if emoji == "" {
		return domain.Message{}, errors.Validationf("emoji is required")
	}
	if err := s.requireMember(actorID, messageID); err != nil {
		return domain.Message{}, err
	}
	return s.messages.Update(messageID, func(m *domain.Message) error {
		for i, reaction := range m.Reactions {
			if reaction.UserID == actorID && reaction.Emoji == emoji {
				m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				return nil
			}
		}
		m.Reactions = append(m.Reactions, domain.Reaction{UserID: actorID, Emoji: emoji})
		return nil
	})
}

// SoftDeleteMessage flags the message deleted without erasing the content.
// Only the original sender may do it; hiding rendered content is the
// reader's concern.
func (s *MessageService) SoftDeleteMessage(actorID, messageID string) (domain.Message, error) {
	return s.messages.Update(messageID, func(m *domain.Message) error {
		if m.SenderID != actorID {
			return errors.ErrNotSender
		}
		m.IsDeleted = true
		return nil
	})
}

// MarkRead records the actor in the message's read set.
func (s *MessageService) MarkRead(actorID, messageID string) error {
	if err := s.requireMember(actorID, messageID); err != nil {
		return err
	}
	_, err := s.messages.Update(messageID, func(m *domain.Message) error {
		m.ReadBy, _ = repositories.AddToSet(m.ReadBy, actorID)
		return nil
	})
	return err
}

func (s *MessageService) requireMember(actorID, messageID string) error {
	msg, err := s.messages.Get(messageID)
	if err != nil {
		return err
	}
	chat, err := s.chats.Get(msg.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(actorID) {
		return errors.ErrNotMember
	}
	return nil
}
