package runtime

import (
	"sync"

	"chatify/contract"
)

type Set map[string]struct{}

// Registry tracks live sessions, the users behind them and the chat rooms
// they joined. A user may hold several simultaneous sessions (phone and
// browser); presence follows the set of sessions, not any single one.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]session // sessionID -> sink and owner
	userSessions map[string]Set     // userID -> sessionIDs
	roomSessions map[string]Set     // chatID -> sessionIDs
}

type session struct {
	userID string
	sink   contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:     make(map[string]session),
		userSessions: make(map[string]Set),
		roomSessions: make(map[string]Set),
	}
}

// Connect registers a freshly opened connection. The session stays
// anonymous until Setup binds it to a user.
func (r *Registry) Connect(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = session{sink: sink}
}

// Setup binds a session to its authenticated user.
func (r *Registry) Setup(sessionID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	s.userID = userID
	r.sessions[sessionID] = s

	if _, ok := r.userSessions[userID]; !ok {
		r.userSessions[userID] = make(Set)
	}
	r.userSessions[userID][sessionID] = struct{}{}
}

// JoinChat subscribes a session to a chat room so that room-scoped events
// such as typing indicators reach it.
func (r *Registry) JoinChat(sessionID, chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	if _, ok := r.roomSessions[chatID]; !ok {
		r.roomSessions[chatID] = make(Set)
	}
	r.roomSessions[chatID][sessionID] = struct{}{}
}

// Disconnect removes a session everywhere and reports whether it was the
// user's last one. Empty sets are removed so the maps do not grow with
// every room ever joined.
func (r *Registry) Disconnect(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	delete(r.sessions, sessionID)

	for chatID, members := range r.roomSessions {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.roomSessions, chatID)
		}
	}

	if s.userID == "" {
		return "", false
	}
	members := r.userSessions[s.userID]
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.userSessions, s.userID)
		return s.userID, true
	}
	return s.userID, false
}

// SessionCount reports the number of open sessions, bound or not.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userSessions[userID]) > 0
}

// SinksForUser resolves every live session of a user into its sink.
func (r *Registry) SinksForUser(userID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for sessionID := range r.userSessions[userID] {
		if s, ok := r.sessions[sessionID]; ok {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

// SinksForRoom retrieves the sinks of every session subscribed to a chat
// room, excluding the originating session so nobody sees their own typing
// indicator echoed back.
func (r *Registry) SinksForRoom(chatID, excludeSessionID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomSessions[chatID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for sessionID := range members {
		if sessionID == excludeSessionID {
			continue
		}
		if s, ok := r.sessions[sessionID]; ok {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

// AllSinks returns the sinks of every bound session except those of one
// user, used for presence broadcasts where the subject already knows.
func (r *Registry) AllSinks(excludeUserID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, s := range r.sessions {
		if s.userID == "" || s.userID == excludeUserID {
			continue
		}
		sinks = append(sinks, s.sink)
	}
	return sinks
}
