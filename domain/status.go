package domain

import "time"

// StatusTTL is the fixed lifetime of an ephemeral status broadcast.
const StatusTTL = 24 * time.Hour

type StatusType string

const (
	StatusText  StatusType = "text"
	StatusImage StatusType = "image"
	StatusVideo StatusType = "video"
)

// Status is an ephemeral broadcast owned by a user or, when GroupID is set,
// by a group. It is created once, mutated only by view/like events, and
// becomes unreachable once ExpiresAt elapses.
type Status struct {
	ID        string
	UserID    string
	GroupID   string
	Type      StatusType
	Content   string
	Caption   string
	Color     string
	Viewers   []string
	Likes     []string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s Status) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

func (s Status) LikedBy(userID string) bool {
	for _, id := range s.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
