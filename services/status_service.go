//go:generate go run go.uber.org/mock/mockgen -source=status_service.go -destination=../mocks/mock_status_service.go -package=mocks
package services

import (
	"time"

	"chatify/domain"
	"chatify/errors"
	"chatify/repositories"

	"github.com/google/uuid"
)

type IStatusService interface {
	CreateStatus(actorID, groupChatID string, statusType domain.StatusType, content, caption, color string) (domain.Status, error)
	ViewStatus(actorID, statusID string) (domain.Status, error)
	ToggleLike(actorID, statusID string) (bool, error)
	GetStatuses(actorID string) ([]domain.Status, error)
}

// StatusService manages the ephemeral 24h broadcasts. Expiry is enforced
// by storage TTL; the service never deletes a status explicitly.
type StatusService struct {
	statuses repositories.IStatusRepository
	chats    repositories.IChatRepository
	users    repositories.IUserRepository
}

func NewStatusService(
	statuses repositories.IStatusRepository,
	chats repositories.IChatRepository,
	users repositories.IUserRepository,
) *StatusService {
	return &StatusService{statuses: statuses, chats: chats, users: users}
}

// CreateStatus publishes a personal status, or a group status when
// groupChatID names a group chat the actor administers.
func (s *StatusService) CreateStatus(actorID, groupChatID string, statusType domain.StatusType, content, caption, color string) (domain.Status, error) {
	if content == "" {
		return domain.Status{}, errors.Validationf("status content is required")
	}
	switch statusType {
	case domain.StatusText, domain.StatusImage, domain.StatusVideo:
	default:
		return domain.Status{}, errors.Validationf("invalid status type %q", statusType)
	}

	if groupChatID != "" {
		chat, err := s.chats.Get(groupChatID)
		if err != nil {
			return domain.Status{}, err
		}
		if !chat.IsGroup {
			return domain.Status{}, errors.Validationf("statuses can only be scoped to group chats")
		}
		group, err := s.chats.GetGroup(groupChatID)
		if err != nil {
			return domain.Status{}, err
		}
		if !group.IsAdmin(actorID) {
			return domain.Status{}, errors.ErrAdminsOnly
		}
	}

	now := time.Now().UTC()
	status := domain.Status{
		ID:        uuid.NewString(),
		UserID:    actorID,
		GroupID:   groupChatID,
		Type:      statusType,
		Content:   content,
		Caption:   caption,
		Color:     color,
		ExpiresAt: now.Add(domain.StatusTTL),
		CreatedAt: now,
	}
	if err := s.statuses.Create(status); err != nil {
		return domain.Status{}, err
	}
	return status, nil
}

// ViewStatus records the actor as a viewer, at most once.
func (s *StatusService) ViewStatus(actorID, statusID string) (domain.Status, error) {
	return s.statuses.Update(statusID, func(st *domain.Status) error {
		if st.UserID == actorID {
			return nil
		}
		st.Viewers, _ = repositories.AddToSet(st.Viewers, actorID)
		return nil
	})
}

// ToggleLike flips the actor's like and reports the new state.
func (s *StatusService) ToggleLike(actorID, statusID string) (bool, error) {
	var liked bool
	_, err := s.statuses.Update(statusID, func(st *domain.Status) error {
		st.Likes, liked = repositories.ToggleInSet(st.Likes, actorID)
		return nil
	})
	return liked, err
}

// GetStatuses returns the live statuses visible to the actor: their own,
// those of users they share a 1:1 chat with (blocks excluded both ways),
// and those of the group chats they belong to.
func (s *StatusService) GetStatuses(actorID string) ([]domain.Status, error) {
	actor, err := s.users.Get(actorID)
	if err != nil {
		return nil, err
	}
	chats, err := s.chats.ListForUser(actorID)
	if err != nil {
		return nil, err
	}

	var peerIDs []string
	var groupChatIDs []string
	for _, chat := range chats {
		if chat.IsGroup {
			groupChatIDs = append(groupChatIDs, chat.ID)
			continue
		}
		other := chat.OtherUser(actorID)
		if other == "" || actor.HasBlocked(other) {
			continue
		}
		peerIDs = append(peerIDs, other)
	}
	peers, err := s.users.GetMany(peerIDs)
	if err != nil {
		return nil, err
	}
	ownerIDs := []string{actorID}
	for _, peer := range peers {
		if peer.HasBlocked(actorID) {
			continue
		}
		ownerIDs = append(ownerIDs, peer.ID)
	}

	statuses, err := s.statuses.ListVisible(ownerIDs, groupChatIDs)
	if err != nil {
		return nil, err
	}
	return statuses, nil
}
