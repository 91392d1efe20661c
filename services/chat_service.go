//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatify/domain"
	"chatify/errors"
	"chatify/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// JoinStatus is the observable outcome of RequestJoin.
type JoinStatus string

const (
	JoinRequested JoinStatus = "requested"
	JoinJoined    JoinStatus = "joined"
)

type IChatService interface {
	CreateDirectChat(actorID, targetID string, foundByMobile bool) (domain.EnrichedChat, error)
	CreateGroup(actorID, name string, memberIDs []string, isPrivate bool) (domain.EnrichedChat, error)
	GetChat(actorID, chatID string) (domain.EnrichedChat, error)
	ListChats(actorID string) ([]domain.EnrichedChat, error)
	RenameGroup(actorID, chatID, name string) (domain.Group, error)
	UpdateGroupInfo(actorID, chatID, description, icon string) (domain.Group, error)
	UpdateGroupSettings(actorID, chatID string, settings domain.GroupSettings) (domain.Group, error)
	AddMember(actorID, chatID, targetID string) (domain.Chat, error)
	RemoveMember(actorID, chatID, targetID string) (domain.Chat, error)
	MakeAdmin(actorID, chatID, targetID string) (domain.Group, error)
	RemoveAdmin(actorID, chatID, targetID string) (domain.Group, error)
	DeleteGroup(actorID, chatID string) error
	RequestJoin(actorID, chatID string) (JoinStatus, error)
	ResolveJoinRequest(actorID, chatID, targetID string, accept bool) error
	ToggleMute(actorID, chatID string) (bool, error)
	ToggleArchive(actorID, chatID string) (bool, error)
	ToggleSharePhone(actorID, chatID string) (bool, error)
	SoftDeleteChat(actorID, chatID string) error
}

// ChatService is the membership and authorization engine. Mutations to one
// chat or group aggregate run inside a single storage transaction, so
// concurrent membership edits serialize instead of interleaving.
type ChatService struct {
	chats    repositories.IChatRepository
	users    repositories.IUserRepository
	messages repositories.IMessageRepository
	system   *SystemMessenger
	log      *slog.Logger
}

func NewChatService(
	chats repositories.IChatRepository,
	users repositories.IUserRepository,
	messages repositories.IMessageRepository,
	system *SystemMessenger,
	log *slog.Logger,
) *ChatService {
	return &ChatService{chats: chats, users: users, messages: messages, system: system, log: log}
}

// CreateDirectChat finds or creates the single 1:1 chat between the actor
// and the target. A block in either direction refuses the chat outright
// rather than creating a conversation neither side can use.
func (s *ChatService) CreateDirectChat(actorID, targetID string, foundByMobile bool) (domain.EnrichedChat, error) {
	if actorID == targetID {
		return domain.EnrichedChat{}, errors.Validationf("cannot open a chat with yourself")
	}
	actor, err := s.users.Get(actorID)
	if err != nil {
		return domain.EnrichedChat{}, err
	}
	target, err := s.users.Get(targetID)
	if err != nil {
		return domain.EnrichedChat{}, err
	}
	if actor.HasBlocked(targetID) || target.HasBlocked(actorID) {
		return domain.EnrichedChat{}, fmt.Errorf("%w: blocked", errors.ErrAuthorization)
	}

	chat, _, err := s.chats.CreateDirect(actorID, targetID, foundByMobile)
	if err != nil {
		return domain.EnrichedChat{}, err
	}
	return s.enrich(chat)
}

// CreateGroup creates the chat and its group metadata atomically. The actor
// always joins and becomes the sole initial admin.
func (s *ChatService) CreateGroup(actorID, name string, memberIDs []string, isPrivate bool) (domain.EnrichedChat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.EnrichedChat{}, errors.Validationf("group name is required")
	}
	members := lo.Uniq(lo.Without(memberIDs, actorID))
	if len(members) < 1 {
		return domain.EnrichedChat{}, errors.Validationf("a group needs at least one other member")
	}
	known, err := s.users.GetMany(members)
	if err != nil {
		return domain.EnrichedChat{}, err
	}
	if len(known) != len(members) {
		return domain.EnrichedChat{}, errors.Validationf("unknown member in group")
	}
	actor, err := s.users.Get(actorID)
	if err != nil {
		return domain.EnrichedChat{}, err
	}

	now := time.Now().UTC()
	chat := domain.Chat{
		ID:        uuid.NewString(),
		IsGroup:   true,
		Users:     append([]string{actorID}, members...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	group := domain.Group{
		ChatID:      chat.ID,
		Name:        name,
		Description: domain.DefaultGroupDescription,
		Admins:      []string{actorID},
		Settings:    domain.GroupSettings{IsPrivate: isPrivate},
		CreatedAt:   now,
	}
	if err := s.chats.CreateGroupChat(chat, group); err != nil {
		return domain.EnrichedChat{}, err
	}

	s.system.Announce(chat, domain.NewAnnouncement().
		Addf("%s created the group %q.", actor.DisplayName(), name))
	return s.enrich(chat)
}

func (s *ChatService) GetChat(actorID, chatID string) (domain.EnrichedChat, error) {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return domain.EnrichedChat{}, err
	}
	if !chat.HasMember(actorID) {
		return domain.EnrichedChat{}, errors.ErrNotMember
	}
	return s.enrich(chat)
}

// ListChats returns the actor's chats, newest activity first, skipping
// chats the actor soft deleted.
func (s *ChatService) ListChats(actorID string) ([]domain.EnrichedChat, error) {
	chats, err := s.chats.ListForUser(actorID)
	if err != nil {
		return nil, err
	}
	enriched := make([]domain.EnrichedChat, 0, len(chats))
	for _, chat := range chats {
		e, err := s.enrich(chat)
		if err != nil {
			return nil, err
		}
		enriched = append(enriched, e)
	}
	return enriched, nil
}

func (s *ChatService) RenameGroup(actorID, chatID, name string) (domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, errors.Validationf("group name is required")
	}
	group, err := s.chats.UpdateGroup(chatID, func(g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrAdminsOnly
		}
		g.Name = name
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	s.announce(chatID, domain.NewAnnouncement().Addf("The group was renamed to %q.", name))
	return group, nil
}

// UpdateGroupInfo changes description and icon. Empty arguments leave the
// current value untouched.
func (s *ChatService) UpdateGroupInfo(actorID, chatID, description, icon string) (domain.Group, error) {
	return s.chats.UpdateGroup(chatID, func(g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrAdminsOnly
		}
		if description != "" {
			g.Description = description
		}
		if icon != "" {
			g.Icon = icon
		}
		return nil
	})
}

// UpdateGroupSettings replaces the settings and announces every flag that
// actually changed in a single system message.
func (s *ChatService) UpdateGroupSettings(actorID, chatID string, settings domain.GroupSettings) (domain.Group, error) {
	ann := domain.NewAnnouncement()
	group, err := s.chats.UpdateGroup(chatID, func(g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrAdminsOnly
		}
		before := g.Settings
		g.Settings = settings
		if before.OnlyAdminsPost != settings.OnlyAdminsPost {
			ann.Add(onOff("Only admins can post now.", "Everyone can post now.", settings.OnlyAdminsPost))
		}
		if before.HideMembers != settings.HideMembers {
			ann.Add(onOff("The member list is now hidden.", "The member list is now visible.", settings.HideMembers))
		}
		if before.IsPrivate != settings.IsPrivate {
			ann.Add(onOff("The group is now private.", "The group is now public.", settings.IsPrivate))
		}
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	s.announce(chatID, ann)
	return group, nil
}

func onOff(on, off string, state bool) string {
	if state {
		return on
	}
	return off
}

func (s *ChatService) AddMember(actorID, chatID, targetID string) (domain.Chat, error) {
	target, err := s.users.Get(targetID)
	if err != nil {
		return domain.Chat{}, err
	}
	chat, _, err := s.chats.UpdateChatAndGroup(chatID, func(c *domain.Chat, g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrAdminsOnly
		}
		var added bool
		if c.Users, added = repositories.AddToSet(c.Users, targetID); !added {
			return errors.ErrAlreadyMember
		}
		g.JoinRequests, _ = repositories.RemoveFromSet(g.JoinRequests, targetID)
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return domain.Chat{}, err
	}
	s.system.Announce(chat, domain.NewAnnouncement().
		Addf("%s was added to the group.", target.DisplayName()))
	return chat, nil
}

// RemoveMember removes the target from the group. Any member may remove
// themself (leaving); removing someone else requires admin. When the last
// member leaves, the group and its messages are deleted.
func (s *ChatService) RemoveMember(actorID, chatID, targetID string) (domain.Chat, error) {
	if actorID != targetID {
		group, err := s.chats.GetGroup(chatID)
		if err != nil {
			return domain.Chat{}, err
		}
		if !group.IsAdmin(actorID) {
			return domain.Chat{}, errors.ErrAdminsOnly
		}
	}
	chat, err := s.chats.RemoveMember(chatID, targetID)
	if err != nil {
		return domain.Chat{}, err
	}
	if len(chat.Users) == 0 {
		return chat, s.chats.DeleteCascade(chatID)
	}

	ann := domain.NewAnnouncement()
	if actorID == targetID {
		ann.Add("A member left the group.")
	} else {
		ann.Add("A member was removed from the group.")
	}
	s.system.Announce(chat, ann)
	return chat, nil
}

func (s *ChatService) MakeAdmin(actorID, chatID, targetID string) (domain.Group, error) {
	target, err := s.users.Get(targetID)
	if err != nil {
		return domain.Group{}, err
	}
	chat, group, err := s.chats.UpdateChatAndGroup(chatID, func(c *domain.Chat, g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrAdminsOnly
		}
		if !c.HasMember(targetID) {
			return errors.ErrNotMember
		}
		g.Admins, _ = repositories.AddToSet(g.Admins, targetID)
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	s.system.Announce(chat, domain.NewAnnouncement().
		Addf("%s is now an admin.", target.DisplayName()))
	return group, nil
}

func (s *ChatService) RemoveAdmin(actorID, chatID, targetID string) (domain.Group, error) {
	target, err := s.users.Get(targetID)
	if err != nil {
		return domain.Group{}, err
	}
	chat, group, err := s.chats.UpdateChatAndGroup(chatID, func(c *domain.Chat, g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrAdminsOnly
		}
		var removed bool
		if g.Admins, removed = repositories.RemoveFromSet(g.Admins, targetID); !removed {
			return errors.Validationf("%s is not an admin", targetID)
		}
		if len(g.Admins) == 0 {
			return errors.Validationf("a group needs at least one admin")
		}
		return nil
	})
	if err != nil {
		return domain.Group{}, err
	}
	s.system.Announce(chat, domain.NewAnnouncement().
		Addf("%s is no longer an admin.", target.DisplayName()))
	return group, nil
}

// DeleteGroup removes the group, its chat, and every message of that chat.
func (s *ChatService) DeleteGroup(actorID, chatID string) error {
	group, err := s.chats.GetGroup(chatID)
	if err != nil {
		return err
	}
	if !group.IsAdmin(actorID) {
		return errors.ErrAdminsOnly
	}
	return s.chats.DeleteCascade(chatID)
}

// RequestJoin puts the actor into the group's join queue when the group is
// private, or directly into the member list when it is public.
func (s *ChatService) RequestJoin(actorID, chatID string) (JoinStatus, error) {
	actor, err := s.users.Get(actorID)
	if err != nil {
		return "", err
	}
	var status JoinStatus
	chat, _, err := s.chats.UpdateChatAndGroup(chatID, func(c *domain.Chat, g *domain.Group) error {
		if c.HasMember(actorID) {
			return errors.ErrAlreadyMember
		}
		if g.Settings.IsPrivate {
			var added bool
			if g.JoinRequests, added = repositories.AddToSet(g.JoinRequests, actorID); !added {
				return errors.ErrAlreadyRequested
			}
			status = JoinRequested
			return nil
		}
		c.Users, _ = repositories.AddToSet(c.Users, actorID)
		c.UpdatedAt = time.Now().UTC()
		status = JoinJoined
		return nil
	})
	if err != nil {
		return "", err
	}
	if status == JoinJoined {
		s.system.Announce(chat, domain.NewAnnouncement().
			Addf("%s joined via QR code.", actor.DisplayName()))
	}
	return status, nil
}

// ResolveJoinRequest accepts or rejects a pending request. A target no
// longer in the queue is a no-op, not an error: two admins may race to
// resolve the same request.
func (s *ChatService) ResolveJoinRequest(actorID, chatID, targetID string, accept bool) error {
	target, err := s.users.Get(targetID)
	if err != nil {
		return err
	}
	var resolved bool
	chat, _, err := s.chats.UpdateChatAndGroup(chatID, func(c *domain.Chat, g *domain.Group) error {
		if !g.IsAdmin(actorID) {
			return errors.ErrAdminsOnly
		}
		g.JoinRequests, resolved = repositories.RemoveFromSet(g.JoinRequests, targetID)
		if resolved && accept {
			c.Users, _ = repositories.AddToSet(c.Users, targetID)
			c.UpdatedAt = time.Now().UTC()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if resolved && accept {
		s.system.Announce(chat, domain.NewAnnouncement().
			Addf("%s joined the group.", target.DisplayName()))
	}
	return nil
}

func (s *ChatService) ToggleMute(actorID, chatID string) (bool, error) {
	return s.toggle(actorID, chatID, repositories.MarkerMuted)
}

func (s *ChatService) ToggleArchive(actorID, chatID string) (bool, error) {
	return s.toggle(actorID, chatID, repositories.MarkerArchived)
}

func (s *ChatService) ToggleSharePhone(actorID, chatID string) (bool, error) {
	return s.toggle(actorID, chatID, repositories.MarkerSharedPhone)
}

func (s *ChatService) toggle(actorID, chatID string, marker repositories.Marker) (bool, error) {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return false, err
	}
	if !chat.HasMember(actorID) {
		return false, errors.ErrNotMember
	}
	return s.chats.ToggleMarker(chatID, marker, actorID)
}

// SoftDeleteChat hides the chat for the actor only. Other members keep the
// conversation untouched.
func (s *ChatService) SoftDeleteChat(actorID, chatID string) error {
	chat, err := s.chats.Get(chatID)
	if err != nil {
		return err
	}
	if !chat.HasMember(actorID) {
		return errors.ErrNotMember
	}
	return s.chats.SoftDeleteFor(chatID, actorID)
}

// announce loads the chat and emits a system message. Used by operations
// whose repository call returns only the group record.
func (s *ChatService) announce(chatID string, ann *domain.Announcement) {
	if ann.Empty() {
		return
	}
	chat, err := s.chats.Get(chatID)
	if err != nil {
		s.log.Warn("Chat vanished before announcement", "chat_id", chatID, "error", err)
		return
	}
	s.system.Announce(chat, ann)
}

func (s *ChatService) enrich(chat domain.Chat) (domain.EnrichedChat, error) {
	members, err := s.users.GetMany(chat.Users)
	if err != nil {
		return domain.EnrichedChat{}, err
	}
	enriched := domain.EnrichedChat{
		Chat:    chat,
		Members: lo.Map(members, func(u domain.User, _ int) domain.Profile { return u.Profile() }),
	}
	if chat.IsGroup {
		group, err := s.chats.GetGroup(chat.ID)
		if err != nil {
			return domain.EnrichedChat{}, err
		}
		enriched.Group = &group
	}
	if chat.LatestMessageID != "" {
		if latest, err := s.messages.Get(chat.LatestMessageID); err == nil {
			enriched.LatestMessage = &latest
		}
	}
	return enriched, nil
}
