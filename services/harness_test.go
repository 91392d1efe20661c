package services

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"chatify/auth"
	"chatify/domain"
	"chatify/domain/event"
	"chatify/repositories"
	"chatify/runtime/workers"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeDeliverer records everything the services hand to the router, so
// tests can assert on fan-out without a running worker.
type fakeDeliverer struct {
	mu         sync.Mutex
	fanouts    []fanout
	userEvents map[string][]event.DomainEvent
	broadcasts []event.DomainEvent
}

type fanout struct {
	event      event.DomainEvent
	recipients []workers.Recipient
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{userEvents: make(map[string][]event.DomainEvent)}
}

func (f *fakeDeliverer) DeliverToRecipients(evt event.DomainEvent, recipients []workers.Recipient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fanouts = append(f.fanouts, fanout{event: evt, recipients: recipients})
}

func (f *fakeDeliverer) DeliverToUser(userID string, evt event.DomainEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userEvents[userID] = append(f.userEvents[userID], evt)
}

func (f *fakeDeliverer) Broadcast(excludeUserID string, evt event.DomainEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, evt)
}

// systemMessages returns the system-message texts fanned out so far.
func (f *fakeDeliverer) systemMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, fo := range f.fanouts {
		if mr, ok := fo.event.(event.MessageReceived); ok && mr.Message.IsSystem() {
			texts = append(texts, mr.Message.Content)
		}
	}
	return texts
}

func (f *fakeDeliverer) lastFanout() (fanout, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fanouts) == 0 {
		return fanout{}, false
	}
	return f.fanouts[len(f.fanouts)-1], true
}

// harness wires the full service layer onto an in-memory store.
type harness struct {
	users    *UserService
	chats    *ChatService
	messages *MessageService
	statuses *StatusService
	calls    *CallService
	deliver  *fakeDeliverer

	userRepo repositories.IUserRepository
	chatRepo repositories.IChatRepository
	msgRepo  repositories.IMessageRepository
}

func newHarness(t *testing.T) (*harness, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	deliver := newFakeDeliverer()

	userRepo := repositories.NewUserRepository(db)
	chatRepo := repositories.NewChatRepository(db)
	msgRepo := repositories.NewMessageRepository(db, log, nil)
	statusRepo := repositories.NewStatusRepository(db)
	callRepo := repositories.NewCallRepository(db)

	system := NewSystemMessenger(msgRepo, chatRepo, deliver, log)
	tokens := auth.NewTokenManager([]byte("test-signing-key"), time.Hour)

	h := &harness{
		users:    NewUserService(userRepo, chatRepo, tokens, system, log),
		chats:    NewChatService(chatRepo, userRepo, msgRepo, system, log),
		messages: NewMessageService(msgRepo, chatRepo, userRepo, deliver, log),
		statuses: NewStatusService(statusRepo, chatRepo, userRepo),
		calls:    NewCallService(callRepo, userRepo),
		deliver:  deliver,
		userRepo: userRepo,
		chatRepo: chatRepo,
		msgRepo:  msgRepo,
	}
	return h, func() { db.Close() }
}

// seedUser stores a user directly, bypassing registration validation.
func (h *harness) seedUser(t *testing.T, firstName string) domain.User {
	name := strings.ToLower(firstName)
	user := domain.User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		Username:  name + uuid.NewString()[:8],
		Email:     name + "-" + uuid.NewString()[:8] + "@example.com",
		Mobile:    "+3361" + uuid.NewString()[:8],
		Privacy:   domain.Privacy{SearchByUsername: true, SearchByMobile: true},
		CreatedAt: time.Now().UTC(),
	}
	created, err := h.userRepo.Create(user)
	require.NoError(t, err)
	return created
}

// seedGroup creates a group with the first user as admin.
func (h *harness) seedGroup(t *testing.T, name string, users ...domain.User) domain.EnrichedChat {
	require.NotEmpty(t, users)
	memberIDs := make([]string, 0, len(users)-1)
	for _, u := range users[1:] {
		memberIDs = append(memberIDs, u.ID)
	}
	chat, err := h.chats.CreateGroup(users[0].ID, name, memberIDs, false)
	require.NoError(t, err)
	return chat
}
