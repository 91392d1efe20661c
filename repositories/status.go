package repositories

import (
	"encoding/json"
	"time"

	"chatify/domain"
	"chatify/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IStatusRepository interface {
	Create(status domain.Status) error
	Get(id string) (domain.Status, error)
	Update(id string, mutate func(*domain.Status) error) (domain.Status, error)
	ListVisible(ownerIDs []string, groupChatIDs []string) ([]domain.Status, error)
}

// StatusRepository stores ephemeral statuses with a badger TTL, so expiry
// needs no sweeper: expired entries simply stop appearing in reads.
type StatusRepository struct {
	db *badger.DB
}

func NewStatusRepository(db *badger.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) Create(status domain.Status) error {
	ttl := time.Until(status.ExpiresAt)
	if ttl <= 0 {
		return errors.Validationf("status already expired")
	}
	return update(r.db, func(txn *badger.Txn) error {
		return setJSONWithTTL(txn, statusKey(status.ID), status, ttl)
	})
}

func (r *StatusRepository) Get(id string) (domain.Status, error) {
	var status domain.Status
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, statusKey(id), &status)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Status{}, errors.ErrStatusNotFound
	}
	return status, err
}

// Update rewrites the status in place, preserving the remaining lifetime.
// Viewer and like toggles must never extend the 24h window.
func (r *StatusRepository) Update(id string, mutate func(*domain.Status) error) (domain.Status, error) {
	var updated domain.Status
	err := update(r.db, func(txn *badger.Txn) error {
		var status domain.Status
		if err := getJSON(txn, statusKey(id), &status); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrStatusNotFound
			}
			return err
		}
		if err := mutate(&status); err != nil {
			return err
		}
		ttl := time.Until(status.ExpiresAt)
		if ttl <= 0 {
			return errors.ErrStatusNotFound
		}
		updated = status
		return setJSONWithTTL(txn, statusKey(status.ID), status, ttl)
	})
	return updated, err
}

// ListVisible scans all live statuses and keeps the ones the viewer may
// see: personal statuses of the given owners and group statuses of the
// given chats. Badger hides expired entries from the iterator.
func (r *StatusRepository) ListVisible(ownerIDs []string, groupChatIDs []string) ([]domain.Status, error) {
	var statuses []domain.Status
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(prefixStatus)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var status domain.Status
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &status)
			}); err != nil {
				return err
			}
			switch {
			case status.GroupID != "":
				if lo.Contains(groupChatIDs, status.GroupID) {
					statuses = append(statuses, status)
				}
			default:
				if lo.Contains(ownerIDs, status.UserID) {
					statuses = append(statuses, status)
				}
			}
		}
		return nil
	})
	return statuses, err
}
