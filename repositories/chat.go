//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"sort"
	"time"

	"chatify/domain"
	"chatify/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Marker selects one of the per-viewer marker sets on a chat.
type Marker string

const (
	MarkerMuted       Marker = "muted"
	MarkerArchived    Marker = "archived"
	MarkerSharedPhone Marker = "shared_phone"
)

type IChatRepository interface {
	CreateDirect(actorID, targetID string, foundByMobile bool) (domain.Chat, bool, error)
	CreateGroupChat(chat domain.Chat, group domain.Group) error
	Get(chatID string) (domain.Chat, error)
	GetGroup(chatID string) (domain.Group, error)
	ListForUser(userID string) ([]domain.Chat, error)
	UpdateChat(chatID string, mutate func(*domain.Chat) error) (domain.Chat, error)
	UpdateGroup(chatID string, mutate func(*domain.Group) error) (domain.Group, error)
	UpdateChatAndGroup(chatID string, mutate func(*domain.Chat, *domain.Group) error) (domain.Chat, domain.Group, error)
	RemoveMember(chatID, userID string) (domain.Chat, error)
	SetLatestMessage(chatID, messageID string) error
	ToggleMarker(chatID string, marker Marker, userID string) (bool, error)
	SoftDeleteFor(chatID, userID string) error
	DeleteCascade(chatID string) error
}

type ChatRepository struct {
	db *badger.DB
}

func NewChatRepository(db *badger.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateDirect finds or creates the single 1:1 chat for the unordered user
// pair in one transaction, keyed by a canonical pair index. Concurrent
// creators conflict on that key and retry, so at most one chat ever exists
// per pair. The returned bool reports whether the chat was created.
//
// With foundByMobile set, the target's id is added to SharedPhoneNumbers and
// the actor is cleared from DeletedBy (reopening a chat the actor had
// hidden) in the same transaction.
func (r *ChatRepository) CreateDirect(actorID, targetID string, foundByMobile bool) (domain.Chat, bool, error) {
	var (
		chat    domain.Chat
		created bool
	)
	pairKey := directKey(actorID, targetID)
	err := update(r.db, func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(pairKey)
		if err == nil {
			var chatID string
			if err := item.Value(func(val []byte) error {
				chatID = string(val)
				return nil
			}); err != nil {
				return err
			}
			if err := getJSON(txn, chatKey(chatID), &chat); err != nil {
				return err
			}
			if !foundByMobile {
				return nil
			}
			chat.SharedPhoneNumbers, _ = AddToSet(chat.SharedPhoneNumbers, targetID)
			chat.DeletedBy, _ = RemoveFromSet(chat.DeletedBy, actorID)
			return setJSON(txn, chatKey(chat.ID), chat)
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		now := time.Now().UTC()
		chat = domain.Chat{
			ID:        uuid.NewString(),
			Users:     []string{actorID, targetID},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if foundByMobile {
			chat.SharedPhoneNumbers = []string{targetID}
		}
		created = true
		if err := txn.Set(pairKey, []byte(chat.ID)); err != nil {
			return err
		}
		return setJSON(txn, chatKey(chat.ID), chat)
	})
	if err != nil {
		return domain.Chat{}, false, err
	}
	return chat, created, nil
}

// CreateGroupChat writes the chat and its paired group in one transaction.
// If either write fails, neither persists.
func (r *ChatRepository) CreateGroupChat(chat domain.Chat, group domain.Group) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, chatKey(chat.ID), chat); err != nil {
			return err
		}
		return setJSON(txn, groupKey(group.ChatID), group)
	})
}

func (r *ChatRepository) Get(chatID string) (domain.Chat, error) {
	var chat domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, chatKey(chatID), &chat)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	return chat, err
}

func (r *ChatRepository) GetGroup(chatID string) (domain.Group, error) {
	var group domain.Group
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, groupKey(chatID), &group)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Group{}, errors.ErrGroupNotFound
	}
	return group, err
}

// ListForUser returns the chats the user belongs to and has not soft
// deleted, newest activity first.
func (r *ChatRepository) ListForUser(userID string) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixChat)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var chat domain.Chat
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &chat)
			}); err != nil {
				return err
			}
			if chat.HasMember(userID) && !chat.DeletedFor(userID) {
				chats = append(chats, chat)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (r *ChatRepository) UpdateChat(chatID string, mutate func(*domain.Chat) error) (domain.Chat, error) {
	var updated domain.Chat
	err := update(r.db, func(txn *badger.Txn) error {
		var chat domain.Chat
		if err := getJSON(txn, chatKey(chatID), &chat); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrChatNotFound
			}
			return err
		}
		if err := mutate(&chat); err != nil {
			return err
		}
		updated = chat
		return setJSON(txn, chatKey(chatID), chat)
	})
	return updated, err
}

func (r *ChatRepository) UpdateGroup(chatID string, mutate func(*domain.Group) error) (domain.Group, error) {
	var updated domain.Group
	err := update(r.db, func(txn *badger.Txn) error {
		var group domain.Group
		if err := getJSON(txn, groupKey(chatID), &group); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrGroupNotFound
			}
			return err
		}
		if err := mutate(&group); err != nil {
			return err
		}
		updated = group
		return setJSON(txn, groupKey(chatID), group)
	})
	return updated, err
}

// UpdateChatAndGroup mutates both records of a group aggregate in one
// transaction. Membership moves (join-request accept, member add) that touch
// both sides go through here so they cannot interleave.
func (r *ChatRepository) UpdateChatAndGroup(chatID string, mutate func(*domain.Chat, *domain.Group) error) (domain.Chat, domain.Group, error) {
	var (
		updatedChat  domain.Chat
		updatedGroup domain.Group
	)
	err := update(r.db, func(txn *badger.Txn) error {
		var chat domain.Chat
		if err := getJSON(txn, chatKey(chatID), &chat); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrChatNotFound
			}
			return err
		}
		var group domain.Group
		if err := getJSON(txn, groupKey(chatID), &group); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrGroupNotFound
			}
			return err
		}
		if err := mutate(&chat, &group); err != nil {
			return err
		}
		updatedChat, updatedGroup = chat, group
		if err := setJSON(txn, chatKey(chatID), chat); err != nil {
			return err
		}
		return setJSON(txn, groupKey(chatID), group)
	})
	return updatedChat, updatedGroup, err
}

// RemoveMember pulls the user from the chat's member list and from the
// group's admin list in the same transaction, so admins never reference a
// non-member. If the last admin leaves a group that still has members, the
// oldest remaining member is promoted so the admin set stays non-empty.
func (r *ChatRepository) RemoveMember(chatID, userID string) (domain.Chat, error) {
	chat, _, err := r.UpdateChatAndGroup(chatID, func(c *domain.Chat, g *domain.Group) error {
		var removed bool
		c.Users, removed = RemoveFromSet(c.Users, userID)
		if !removed {
			return errors.ErrNotMember
		}
		c.UpdatedAt = time.Now().UTC()
		g.Admins, _ = RemoveFromSet(g.Admins, userID)
		if len(g.Admins) == 0 && len(c.Users) > 0 {
			g.Admins = []string{c.Users[0]}
		}
		return nil
	})
	return chat, err
}

func (r *ChatRepository) SetLatestMessage(chatID, messageID string) error {
	_, err := r.UpdateChat(chatID, func(c *domain.Chat) error {
		c.LatestMessageID = messageID
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}

// ToggleMarker flips the user's membership in the selected marker set and
// returns the new state.
func (r *ChatRepository) ToggleMarker(chatID string, marker Marker, userID string) (bool, error) {
	var state bool
	_, err := r.UpdateChat(chatID, func(c *domain.Chat) error {
		var set *[]string
		switch marker {
		case MarkerMuted:
			set = &c.MutedBy
		case MarkerArchived:
			set = &c.ArchivedBy
		case MarkerSharedPhone:
			set = &c.SharedPhoneNumbers
		default:
			return errors.Validationf("unknown marker %q", marker)
		}
		*set, state = ToggleInSet(*set, userID)
		return nil
	})
	return state, err
}

// SoftDeleteFor hides the chat for one viewer. Deleting implies
// un-archiving for that viewer.
func (r *ChatRepository) SoftDeleteFor(chatID, userID string) error {
	_, err := r.UpdateChat(chatID, func(c *domain.Chat) error {
		c.DeletedBy, _ = AddToSet(c.DeletedBy, userID)
		c.ArchivedBy, _ = RemoveFromSet(c.ArchivedBy, userID)
		return nil
	})
	return err
}

// DeleteCascade removes the chat, its paired group, its entire message log,
// and the 1:1 pair index in one transaction.
func (r *ChatRepository) DeleteCascade(chatID string) error {
	return update(r.db, func(txn *badger.Txn) error {
		var chat domain.Chat
		if err := getJSON(txn, chatKey(chatID), &chat); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrChatNotFound
			}
			return err
		}

		// Collect first: badger forbids deletes while an iterator is open.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixMessage + chatID + ":")
		it := txn.NewIterator(opts)
		var msgKeys [][]byte
		var msgIDs []string
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			msgKeys = append(msgKeys, it.Item().KeyCopy(nil))
			var msg domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				it.Close()
				return err
			}
			msgIDs = append(msgIDs, msg.ID)
		}
		it.Close()

		for _, key := range msgKeys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, id := range msgIDs {
			if err := txn.Delete(messageIDKey(id)); err != nil {
				return err
			}
		}
		if !chat.IsGroup && len(chat.Users) == 2 {
			if err := txn.Delete(directKey(chat.Users[0], chat.Users[1])); err != nil {
				return err
			}
		}
		if err := txn.Delete(groupKey(chatID)); err != nil {
			return err
		}
		return txn.Delete(chatKey(chatID))
	})
}
