package services

import (
	"log/slog"
	"time"

	"chatify/contract"
	"chatify/domain/event"
	"chatify/repositories"
)

// PresenceService combines the in-process registry with the persisted
// online flag. Online and offline transitions follow the session set: the
// first session flips the user online, losing the last one flips them
// offline, and every live session hears about both.
type PresenceService struct {
	users    repositories.IUserRepository
	registry contract.IRegistry
	deliver  Deliverer
	log      *slog.Logger
}

func NewPresenceService(
	users repositories.IUserRepository,
	registry contract.IRegistry,
	deliver Deliverer,
	log *slog.Logger,
) *PresenceService {
	return &PresenceService{users: users, registry: registry, deliver: deliver, log: log}
}

// Connect registers a fresh, still anonymous session.
func (s *PresenceService) Connect(sessionID string, sink contract.EventSink) {
	s.registry.Connect(sessionID, sink)
}

// Setup binds the session to its user. The first session of a user flips
// the persisted online flag and broadcasts the transition.
func (s *PresenceService) Setup(sessionID, userID string) {
	wasOnline := s.registry.IsOnline(userID)
	s.registry.Setup(sessionID, userID)
	s.deliver.DeliverToUser(userID, event.Connected{})

	if wasOnline {
		return
	}
	if err := s.users.SetPresence(userID, true, time.Now().UTC()); err != nil {
		s.log.Warn("Failed to persist online flag", "user_id", userID, "error", err)
	}
	s.deliver.Broadcast(userID, event.UserOnline{UserID: userID})
}

func (s *PresenceService) JoinChat(sessionID, chatID string) {
	s.registry.JoinChat(sessionID, chatID)
}

// Disconnect drops the session unconditionally. Losing the user's last
// session persists last-seen and broadcasts the offline transition.
func (s *PresenceService) Disconnect(sessionID string) {
	userID, lastSession := s.registry.Disconnect(sessionID)
	if !lastSession {
		return
	}
	lastSeen := time.Now().UTC()
	if err := s.users.SetPresence(userID, false, lastSeen); err != nil {
		s.log.Warn("Failed to persist offline flag", "user_id", userID, "error", err)
	}
	s.deliver.Broadcast(userID, event.UserOffline{UserID: userID, LastSeen: lastSeen.Unix()})
}
