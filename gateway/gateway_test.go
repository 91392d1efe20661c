package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"chatify/auth"
	"chatify/domain"
	"chatify/notify"
	"chatify/repositories"
	"chatify/runtime"
	"chatify/runtime/workers"
	"chatify/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type gatewayHarness struct {
	server   *httptest.Server
	tokens   *auth.TokenManager
	users    *repositories.UserRepository
	registry *runtime.Registry
}

func newGatewayHarness(t *testing.T) (*gatewayHarness, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	tokens := auth.NewTokenManager([]byte("test-signing-key"), time.Hour)
	users := repositories.NewUserRepository(db)

	registry := runtime.NewRegistry()
	router := workers.NewRouter(log, registry, notify.NewLogNotifier(log), 64)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = router.Run(ctx) }()

	presence := services.NewPresenceService(users, registry, router, log)
	gw := NewGateway(log, tokens, presence, router, 16, true)
	ts := httptest.NewServer(gw)

	h := &gatewayHarness{server: ts, tokens: tokens, users: users, registry: registry}
	return h, func() {
		ts.Close()
		cancel()
		db.Close()
	}
}

func (h *gatewayHarness) seedUser(t *testing.T, firstName string) domain.User {
	name := strings.ToLower(firstName)
	user, err := h.users.Create(domain.User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		Username:  name + uuid.NewString()[:8],
		Email:     name + "-" + uuid.NewString()[:8] + "@example.com",
		Mobile:    "+3361" + uuid.NewString()[:8],
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return user
}

// dial opens an authenticated session for the user and leaves the client
// responsible for the setup frame.
func (h *gatewayHarness) dial(t *testing.T, ctx context.Context, userID string) *websocket.Conn {
	token, err := h.tokens.Generate(userID)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	require.NoError(t, wsjson.Write(ctx, conn, frame))
}

// readUntil drains frames until the named event arrives; unrelated
// presence chatter in between is ignored.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) Frame {
	for {
		var frame Frame
		require.NoError(t, wsjson.Read(ctx, conn, &frame))
		if frame.Event == event {
			return frame
		}
	}
}

func TestGateway_Rejects_Invalid_Token(t *testing.T) {
	req := require.New(t)
	h, cleanup := newGatewayHarness(t)
	defer cleanup()

	resp, err := http.Get(h.server.URL + "?token=garbage")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_Setup_Binds_Presence(t *testing.T) {
	req := require.New(t)
	h, cleanup := newGatewayHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, alice.ID)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// When the client completes the handshake
	send(t, ctx, conn, "setup", nil)

	// Then the session is acknowledged
	frame := readUntil(t, ctx, conn, "connected")
	req.Equal("connected", frame.Event)

	// And the online flag was persisted
	req.Eventually(func() bool {
		stored, err := h.users.Get(alice.ID)
		return err == nil && stored.IsOnline
	}, 2*time.Second, 20*time.Millisecond)
}

func TestGateway_Broadcasts_Online_Transition(t *testing.T) {
	req := require.New(t)
	h, cleanup := newGatewayHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Given bob is already online
	bobConn := h.dial(t, ctx, bob.ID)
	defer bobConn.Close(websocket.StatusNormalClosure, "")
	send(t, ctx, bobConn, "setup", nil)
	readUntil(t, ctx, bobConn, "connected")

	// When alice comes online
	aliceConn := h.dial(t, ctx, alice.ID)
	defer aliceConn.Close(websocket.StatusNormalClosure, "")
	send(t, ctx, aliceConn, "setup", nil)

	// Then bob hears about it
	frame := readUntil(t, ctx, bobConn, "user_online")
	var payload struct{ UserID string }
	req.NoError(json.Unmarshal(frame.Data, &payload))
	req.Equal(alice.ID, payload.UserID)
}

func TestGateway_Typing_Relayed_To_Room(t *testing.T) {
	req := require.New(t)
	h, cleanup := newGatewayHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chatID := uuid.NewString()
	aliceConn := h.dial(t, ctx, alice.ID)
	defer aliceConn.Close(websocket.StatusNormalClosure, "")
	bobConn := h.dial(t, ctx, bob.ID)
	defer bobConn.Close(websocket.StatusNormalClosure, "")

	// Given both sessions set up and joined the same chat room
	send(t, ctx, aliceConn, "setup", nil)
	readUntil(t, ctx, aliceConn, "connected")
	send(t, ctx, bobConn, "setup", nil)
	readUntil(t, ctx, bobConn, "connected")
	send(t, ctx, aliceConn, "join_chat", map[string]string{"chat_id": chatID})
	send(t, ctx, bobConn, "join_chat", map[string]string{"chat_id": chatID})

	// Joins land asynchronously through each read loop
	req.Eventually(func() bool {
		return len(h.registry.SinksForRoom(chatID, "")) == 2
	}, 2*time.Second, 20*time.Millisecond)

	// When alice types
	send(t, ctx, aliceConn, "typing", map[string]string{"chat_id": chatID})

	// Then bob gets the indicator naming the typist and the chat
	var payload struct {
		ChatID string
		UserID string
	}
	frame := readUntil(t, ctx, bobConn, "typing")
	req.NoError(json.Unmarshal(frame.Data, &payload))
	req.Equal(alice.ID, payload.UserID)
	req.Equal(chatID, payload.ChatID)

	// And stop_typing follows the same path
	send(t, ctx, aliceConn, "stop_typing", map[string]string{"chat_id": chatID})
	frame = readUntil(t, ctx, bobConn, "stop_typing")
	req.NoError(json.Unmarshal(frame.Data, &payload))
	req.Equal(alice.ID, payload.UserID)
}

func TestGateway_Disconnect_Persists_LastSeen(t *testing.T) {
	req := require.New(t)
	h, cleanup := newGatewayHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, alice.ID)
	send(t, ctx, conn, "setup", nil)
	readUntil(t, ctx, conn, "connected")

	// When the only session closes
	req.NoError(conn.Close(websocket.StatusNormalClosure, "done"))

	// Then the user goes offline with a last-seen timestamp
	req.Eventually(func() bool {
		stored, err := h.users.Get(alice.ID)
		return err == nil && !stored.IsOnline && !stored.LastSeen.IsZero()
	}, 2*time.Second, 20*time.Millisecond)
}

func TestGateway_Ignores_Malformed_Frames(t *testing.T) {
	req := require.New(t)
	h, cleanup := newGatewayHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := h.dial(t, ctx, alice.ID)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Unknown events and join frames without a chat id are dropped
	send(t, ctx, conn, "teleport", nil)
	send(t, ctx, conn, "join_chat", map[string]string{})

	// The session survives and still completes its setup
	send(t, ctx, conn, "setup", nil)
	frame := readUntil(t, ctx, conn, "connected")
	req.Equal("connected", frame.Event)
}
