//go:generate go run go.uber.org/mock/mockgen -source=user_service.go -destination=../mocks/mock_user_service.go -package=mocks
package services

import (
	"log/slog"
	"time"

	"chatify/auth"
	"chatify/domain"
	"chatify/errors"
	"chatify/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// UsernameChangeCooldown is the minimum gap between two username changes.
const UsernameChangeCooldown = 14 * 24 * time.Hour

// ProfileUpdate carries the fields of an update request. Nil means leave
// the current value untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Username  *string
	Mobile    *string
	About     *string
	Pic       *string
	Gender    *string
	Privacy   *domain.Privacy
}

type IUserService interface {
	Register(req auth.RegisterRequest, firstName, lastName string) (domain.User, string, error)
	Login(email, password string) (domain.User, string, error)
	GetProfile(userID string) (domain.Profile, error)
	UpdateProfile(actorID string, changes ProfileUpdate) (domain.User, error)
	Search(actorID, query string) ([]domain.Profile, error)
	SetFCMToken(actorID, token string) error
	ToggleBlock(actorID, targetID string) (bool, error)
}

type UserService struct {
	users  repositories.IUserRepository
	chats  repositories.IChatRepository
	tokens *auth.TokenManager
	system *SystemMessenger
	log    *slog.Logger
}

func NewUserService(
	users repositories.IUserRepository,
	chats repositories.IChatRepository,
	tokens *auth.TokenManager,
	system *SystemMessenger,
	log *slog.Logger,
) *UserService {
	return &UserService{users: users, chats: chats, tokens: tokens, system: system, log: log}
}

// Register creates the account and returns it with a signed access token.
func (s *UserService) Register(req auth.RegisterRequest, firstName, lastName string) (domain.User, string, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, "", err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Username:     req.Username,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Pic:          domain.DefaultAvatar,
		About:        domain.DefaultAbout,
		PasswordHash: hash,
		Privacy:      domain.Privacy{SearchByUsername: true, SearchByMobile: true},
		CreatedAt:    time.Now().UTC(),
	}
	user, err = s.users.Create(user)
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Login checks the credentials and returns a fresh access token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(email, password string) (domain.User, string, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}
	ok, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !ok {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

func (s *UserService) GetProfile(userID string) (domain.Profile, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return user.Profile(), nil
}

// UpdateProfile applies the changes and announces name, username, and
// mobile changes to every chat the actor belongs to, one system message
// per chat no matter how many fields changed.
func (s *UserService) UpdateProfile(actorID string, changes ProfileUpdate) (domain.User, error) {
	ann := domain.NewAnnouncement()
	now := time.Now().UTC()

	user, err := s.users.Update(actorID, func(u *domain.User) error {
		oldName := u.DisplayName()
		if changes.FirstName != nil {
			u.FirstName = *changes.FirstName
		}
		if changes.LastName != nil {
			u.LastName = *changes.LastName
		}
		if newName := u.DisplayName(); newName != oldName {
			ann.Addf("%s is now known as %s.", oldName, newName)
		}
		if changes.Username != nil && *changes.Username != u.Username {
			if err := auth.ValidateUsername(*changes.Username); err != nil {
				return err
			}
			if !u.LastUsernameChange.IsZero() && now.Sub(u.LastUsernameChange) < UsernameChangeCooldown {
				return errors.Validationf("username can only be changed every 14 days")
			}
			ann.Addf("%s changed their username to %s.", u.DisplayName(), *changes.Username)
			u.Username = *changes.Username
			u.LastUsernameChange = now
		}
		if changes.Mobile != nil && *changes.Mobile != u.Mobile {
			u.Mobile = *changes.Mobile
			ann.Addf("%s changed their phone number.", u.DisplayName())
		}
		if changes.About != nil {
			u.About = *changes.About
		}
		if changes.Pic != nil {
			u.Pic = *changes.Pic
		}
		if changes.Gender != nil {
			u.Gender = *changes.Gender
		}
		if changes.Privacy != nil {
			u.Privacy = *changes.Privacy
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	if !ann.Empty() {
		chats, err := s.chats.ListForUser(actorID)
		if err != nil {
			s.log.Warn("Failed to list chats for profile announcement", "user_id", actorID, "error", err)
			return user, nil
		}
		for _, chat := range chats {
			s.system.Announce(chat, ann)
		}
	}
	return user, nil
}

func (s *UserService) Search(actorID, query string) ([]domain.Profile, error) {
	if query == "" {
		return nil, errors.Validationf("search query is required")
	}
	users, err := s.users.Search(actorID, query)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.Profile { return u.Profile() }), nil
}

func (s *UserService) SetFCMToken(actorID, token string) error {
	_, err := s.users.Update(actorID, func(u *domain.User) error {
		u.FCMToken = token
		return nil
	})
	return err
}

// ToggleBlock flips the block and reports the new state. Blocking affects
// only future direct chats; existing conversations stay readable.
func (s *UserService) ToggleBlock(actorID, targetID string) (bool, error) {
	if actorID == targetID {
		return false, errors.Validationf("cannot block yourself")
	}
	if _, err := s.users.Get(targetID); err != nil {
		return false, err
	}
	return s.users.ToggleBlock(actorID, targetID)
}
