//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"strings"
	"time"

	"chatify/domain"
	"chatify/errors"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	Create(user domain.User) (domain.User, error)
	Get(id string) (domain.User, error)
	GetByEmail(email string) (domain.User, error)
	GetMany(ids []string) ([]domain.User, error)
	Update(id string, mutate func(*domain.User) error) (domain.User, error)
	ToggleBlock(actorID, targetID string) (bool, error)
	SetPresence(id string, online bool, lastSeen time.Time) error
	Search(actorID, query string) ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists the user and its unique-index keys (email, username,
// mobile) in one transaction. Any taken index aborts the whole write.
func (r *UserRepository) Create(user domain.User) (domain.User, error) {
	err := update(r.db, func(txn *badger.Txn) error {
		for _, key := range indexKeys(user) {
			if _, err := txn.Get(key); err == nil {
				return errors.ErrUserAlreadyExists
			} else if err != badger.ErrKeyNotFound {
				return err
			}
		}
		for _, key := range indexKeys(user) {
			if err := txn.Set(key, []byte(user.ID)); err != nil {
				return err
			}
		}
		return setJSON(txn, userKey(user.ID), user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func indexKeys(user domain.User) [][]byte {
	return [][]byte{
		[]byte(prefixUserEmail + strings.ToLower(user.Email)),
		[]byte(prefixUserName + strings.ToLower(user.Username)),
		[]byte(prefixUserMobile + user.Mobile),
	}
}

func (r *UserRepository) Get(id string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) GetByEmail(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixUserEmail + strings.ToLower(email)))
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}
		return getJSON(txn, userKey(id), &user)
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, err
}

// GetMany resolves ids to users, silently skipping dangling references.
// A deleted user must not corrupt the sets that still point at them.
func (r *UserRepository) GetMany(ids []string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			var user domain.User
			if err := getJSON(txn, userKey(id), &user); err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

// Update applies mutate to the stored record in one transaction and keeps
// the unique-index keys consistent when email, username, or mobile change.
func (r *UserRepository) Update(id string, mutate func(*domain.User) error) (domain.User, error) {
	var updated domain.User
	err := update(r.db, func(txn *badger.Txn) error {
		var user domain.User
		if err := getJSON(txn, userKey(id), &user); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrUserNotFound
			}
			return err
		}
		before := user
		if err := mutate(&user); err != nil {
			return err
		}
		if err := reindex(txn, before, user); err != nil {
			return err
		}
		updated = user
		return setJSON(txn, userKey(id), user)
	})
	return updated, err
}

func reindex(txn *badger.Txn, before, after domain.User) error {
	oldKeys, newKeys := indexKeys(before), indexKeys(after)
	for i := range oldKeys {
		if string(oldKeys[i]) == string(newKeys[i]) {
			continue
		}
		if _, err := txn.Get(newKeys[i]); err == nil {
			return errors.ErrUserAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete(oldKeys[i]); err != nil {
			return err
		}
		if err := txn.Set(newKeys[i], []byte(after.ID)); err != nil {
			return err
		}
	}
	return nil
}

// ToggleBlock flips target's membership in actor's blocked set and returns
// the new state.
func (r *UserRepository) ToggleBlock(actorID, targetID string) (bool, error) {
	var blocked bool
	_, err := r.Update(actorID, func(u *domain.User) error {
		u.BlockedUsers, blocked = ToggleInSet(u.BlockedUsers, targetID)
		return nil
	})
	return blocked, err
}

func (r *UserRepository) SetPresence(id string, online bool, lastSeen time.Time) error {
	_, err := r.Update(id, func(u *domain.User) error {
		u.IsOnline = online
		u.LastSeen = lastSeen
		return nil
	})
	return err
}

// Search matches the query against username and mobile, excluding the actor
// and respecting each candidate's privacy flag for the field that matched.
func (r *UserRepository) Search(actorID, query string) ([]domain.User, error) {
	query = strings.ToLower(query)
	var results []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixUser)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var user domain.User
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			}); err != nil {
				return err
			}
			if user.ID == actorID {
				continue
			}
			byUsername := strings.Contains(strings.ToLower(user.Username), query)
			byMobile := strings.Contains(user.Mobile, query)
			if byUsername && user.Privacy.SearchByUsername {
				results = append(results, user)
				continue
			}
			if byMobile && user.Privacy.SearchByMobile {
				results = append(results, user)
			}
		}
		return nil
	})
	return results, err
}
