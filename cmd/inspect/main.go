// Command inspect opens the store read-only and prints its records as
// tables, one per key family. Useful while the server is running: the
// lock guard is bypassed on purpose.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"chatify/domain"
	"chatify/internal"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

func main() {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	rows := map[string][][]string{}
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				family, row := mapRow(key, val)
				rows[family] = append(rows[family], row)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	families := make([]string, 0, len(rows))
	for family := range rows {
		families = append(families, family)
	}
	sort.Strings(families)

	for _, family := range families {
		color.Green.Printf("\n%s (%d)\n", family, len(rows[family]))
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Key", "Detail"})
		table.SetAutoWrapText(false)
		for _, row := range rows[family] {
			table.Append(row)
		}
		table.Render()
	}
}

// mapRow decodes a record into a one-line summary keyed by its family.
// Index keys (direct:, msgid:, useremail:, ...) hold plain ids, not JSON.
func mapRow(key string, val []byte) (string, []string) {
	family := key
	if i := strings.Index(key, ":"); i >= 0 {
		family = key[:i]
	}

	switch family {
	case "user":
		var u domain.User
		if json.Unmarshal(val, &u) == nil {
			return family, []string{key, fmt.Sprintf("%s (@%s) online=%t", u.DisplayName(), u.Username, u.IsOnline)}
		}
	case "chat":
		var c domain.Chat
		if json.Unmarshal(val, &c) == nil {
			return family, []string{key, fmt.Sprintf("group=%t users=%d deletedBy=%d", c.IsGroup, len(c.Users), len(c.DeletedBy))}
		}
	case "group":
		var g domain.Group
		if json.Unmarshal(val, &g) == nil {
			return family, []string{key, fmt.Sprintf("%q admins=%d requests=%d private=%t", g.Name, len(g.Admins), len(g.JoinRequests), g.Settings.IsPrivate)}
		}
	case "msg":
		var m domain.Message
		if json.Unmarshal(val, &m) == nil {
			detail := m.Content
			if len(detail) > 60 {
				detail = detail[:60] + "..."
			}
			return family, []string{key, fmt.Sprintf("[%s] %s", m.Type, detail)}
		}
	case "status":
		var st domain.Status
		if json.Unmarshal(val, &st) == nil {
			return family, []string{key, fmt.Sprintf("[%s] owner=%s group=%s expires=%s", st.Type, st.UserID, st.GroupID, st.ExpiresAt.Format("15:04:05"))}
		}
	case "call":
		var c domain.Call
		if json.Unmarshal(val, &c) == nil {
			return family, []string{key, fmt.Sprintf("[%s] %s -> %s (%ds)", c.Status, c.CallerID, c.ReceiverID, c.DurationSec)}
		}
	}
	return family, []string{key, string(val)}
}
