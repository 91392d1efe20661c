// Package domain contains the core concepts of the messaging platform.
// Entities here carry no storage, network, or UI logic.
package domain

import "time"

const (
	DefaultAbout  = "Hey there! I am using Chatify."
	DefaultAvatar = "https://icon-library.com/images/anonymous-avatar-icon/anonymous-avatar-icon-25.jpg"
)

// Privacy controls whether a user can be found by search.
type Privacy struct {
	SearchByUsername bool
	SearchByMobile   bool
}

type User struct {
	ID                 string
	FirstName          string
	LastName           string
	Username           string
	Email              string
	Mobile             string
	Gender             string
	Pic                string
	About              string
	PasswordHash       string
	IsOnline           bool
	LastSeen           time.Time
	LastUsernameChange time.Time
	BlockedUsers       []string
	FCMToken           string
	Privacy            Privacy
	CreatedAt          time.Time
}

// DisplayName is the name used in announcements and notifications.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

func (u User) HasBlocked(userID string) bool {
	for _, id := range u.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Profile is the display-relevant subset of a user embedded in enriched
// messages and chats. Never carries credentials.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	Pic       string
	Email     string
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Pic:       u.Pic,
		Email:     u.Email,
	}
}
