//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"chatify/domain"
	"chatify/errors"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	Store(msg domain.Message) error
	Get(id string) (domain.Message, error)
	List(chatID string, cursor *string) ([]domain.Message, *string, error)
	Update(id string, mutate func(*domain.Message) error) (domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Store persists a message under "msg:{chat_id}:{timestamp_padded}:{uuid}"
// so a prefix scan yields chronological order, plus an id index for direct
// lookups (reactions, soft delete, reply validation).
func (r *MessageRepository) Store(msg domain.Message) error {
	key := messageKey(msg.ChatID, msg.CreatedAt, msg.ID)
	return update(r.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, key, msg); err != nil {
			return err
		}
		return txn.Set(messageIDKey(msg.ID), key)
	})
}

func (r *MessageRepository) Get(id string) (domain.Message, error) {
	var msg domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		key, err := resolveMessageKey(txn, id)
		if err != nil {
			return err
		}
		return getJSON(txn, key, &msg)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	return msg, err
}

func resolveMessageKey(txn *badger.Txn, id string) ([]byte, error) {
	item, err := txn.Get(messageIDKey(id))
	if err != nil {
		return nil, err
	}
	var key []byte
	err = item.Value(func(val []byte) error {
		key = append([]byte(nil), val...)
		return nil
	})
	return key, err
}

// List retrieves messages for a chat using a reverse prefix scan: newest
// first, paged by an opaque cursor (the key suffix of the last row). It
// stops once the configured limit is reached.
func (r *MessageRepository) List(chatID string, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := prefixMessage + chatID + ":"
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk back.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(messages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			var msg domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" {
		// Nothing was read, the caller reached the end.
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// Update applies mutate to the stored message in one transaction. The
// message keeps its original key: ChatID and CreatedAt never change.
func (r *MessageRepository) Update(id string, mutate func(*domain.Message) error) (domain.Message, error) {
	var updated domain.Message
	err := update(r.db, func(txn *badger.Txn) error {
		key, err := resolveMessageKey(txn, id)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrMessageNotFound
			}
			return err
		}
		var msg domain.Message
		if err := getJSON(txn, key, &msg); err != nil {
			return err
		}
		if err := mutate(&msg); err != nil {
			return err
		}
		updated = msg
		return setJSON(txn, key, msg)
	})
	return updated, err
}
