package repositories

import (
	"encoding/json"

	"chatify/domain"

	"github.com/dgraph-io/badger/v4"
)

type ICallRepository interface {
	Store(call domain.Call) error
	HistoryFor(userID string) ([]domain.Call, error)
}

// CallRepository keeps an append-only call log. Records are never updated
// after the call ends, so there is no Update method on purpose.
type CallRepository struct {
	db *badger.DB
}

func NewCallRepository(db *badger.DB) *CallRepository {
	return &CallRepository{db: db}
}

func (r *CallRepository) Store(call domain.Call) error {
	return update(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, callKey(call.StartedAt, call.ID), call)
	})
}

// HistoryFor walks the call log newest first and keeps the entries the
// user took part in, as caller or receiver.
func (r *CallRepository) HistoryFor(userID string) ([]domain.Call, error) {
	var calls []domain.Call
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixCall)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(prefix, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var call domain.Call
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &call)
			}); err != nil {
				return err
			}
			if call.CallerID == userID || call.ReceiverID == userID {
				calls = append(calls, call)
			}
		}
		return nil
	})
	return calls, err
}
