package domain

import "time"

// Chat wraps either a 1:1 conversation or a group conversation.
// The four per-user marker sets are independent: each hides or flags the
// chat for one viewer without touching shared state.
type Chat struct {
	ID      string
	IsGroup bool
	Users   []string
	// LatestMessageID is a best-effort cache; readers tolerate a brief
	// staleness window.
	LatestMessageID    string
	MutedBy            []string
	ArchivedBy         []string
	DeletedBy          []string
	SharedPhoneNumbers []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EnrichedChat is a Chat with reference fields resolved for display.
type EnrichedChat struct {
	Chat
	Members       []Profile
	Group         *Group
	LatestMessage *Message
}

func (c Chat) HasMember(userID string) bool {
	for _, id := range c.Users {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherUser returns the peer of a 1:1 chat. Empty for group chats.
func (c Chat) OtherUser(userID string) string {
	if c.IsGroup {
		return ""
	}
	for _, id := range c.Users {
		if id != userID {
			return id
		}
	}
	return ""
}

func (c Chat) DeletedFor(userID string) bool {
	for _, id := range c.DeletedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// GroupSettings are admin-controlled group toggles.
type GroupSettings struct {
	OnlyAdminsPost bool
	HideMembers    bool
	IsPrivate      bool
}

// Group is the administrative companion of a group Chat, paired 1:1 and
// cascade-deleted with it. Admins is always a non-empty subset of Chat.Users.
type Group struct {
	ChatID       string
	Name         string
	Description  string
	Icon         string
	Admins       []string
	JoinRequests []string
	Settings     GroupSettings
	CreatedAt    time.Time
}

func (g Group) IsAdmin(userID string) bool {
	for _, id := range g.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

func (g Group) HasRequested(userID string) bool {
	for _, id := range g.JoinRequests {
		if id == userID {
			return true
		}
	}
	return false
}

const (
	DefaultGroupDescription = "This is a group chat."
)
