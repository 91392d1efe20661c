package domain

import (
	"fmt"
	"strings"
)

// Announcement accumulates discrete change descriptors for one logical
// action and renders them into a single system-message text. A settings
// update touching five fields produces one message, not five.
type Announcement struct {
	changes []string
}

func NewAnnouncement() *Announcement {
	return &Announcement{}
}

func (a *Announcement) Add(descriptor string) *Announcement {
	a.changes = append(a.changes, descriptor)
	return a
}

func (a *Announcement) Addf(format string, args ...any) *Announcement {
	return a.Add(fmt.Sprintf(format, args...))
}

func (a *Announcement) Empty() bool { return len(a.changes) == 0 }

// Changes exposes the accumulated descriptors, so callers and tests can
// assert on the list rather than on exact formatting.
func (a *Announcement) Changes() []string {
	out := make([]string, len(a.changes))
	copy(out, a.changes)
	return out
}

// Render joins the descriptors with sep into one deterministic sentence.
func (a *Announcement) Render(sep string) string {
	return strings.TrimSpace(strings.Join(a.changes, sep))
}
