// Package repositories persists the chat state in BadgerDB. Every mutation
// runs inside a single Update transaction; badger's SSI conflict detection
// makes each aggregate's read-modify-write serializable, and conflicting
// writers retry instead of losing updates.
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes. Message keys embed a zero-padded UnixNano timestamp so a
// prefix scan yields chronological order, with the UUID as a collision
// disambiguator (same scheme for calls).
const (
	prefixUser       = "user:"
	prefixUserEmail  = "useremail:"
	prefixUserName   = "username:"
	prefixUserMobile = "usermobile:"
	prefixChat       = "chat:"
	prefixGroup      = "group:"
	prefixDirect     = "direct:"
	prefixMessage    = "msg:"
	prefixMessageID  = "msgid:"
	prefixStatus     = "status:"
	prefixCall       = "call:"
)

const maxTxnRetries = 10

func userKey(id string) []byte    { return []byte(prefixUser + id) }
func chatKey(id string) []byte    { return []byte(prefixChat + id) }
func groupKey(chatID string) []byte { return []byte(prefixGroup + chatID) }
func statusKey(id string) []byte  { return []byte(prefixStatus + id) }
func messageIDKey(id string) []byte { return []byte(prefixMessageID + id) }

// directKey is canonical for the unordered user pair: the lower id always
// comes first, so both creators race on the same key.
func directKey(a, b string) []byte {
	if b < a {
		a, b = b, a
	}
	return []byte(prefixDirect + a + ":" + b)
}

func messageKey(chatID string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", prefixMessage, chatID, at.UnixNano(), id))
}

func callKey(at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", prefixCall, at.UnixNano(), id))
}

// update runs fn in a read-write transaction, retrying on SSI conflicts.
// Retrying here is what turns concurrent find-or-create and toggle races
// into a serial order instead of duplicates or lost updates.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
	return err
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}

// setJSONWithTTL stores a record badger deletes on its own once ttl elapses.
func setJSONWithTTL(txn *badger.Txn, key []byte, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
