package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"chatify/auth"
	"chatify/gateway"
	"chatify/notify"
	"chatify/repositories"
	"chatify/runtime"
	"chatify/runtime/workers"
	"chatify/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the whole stack onto an in-memory store, the same
// way cmd/server does, and exposes it through httptest.
func newTestServer(t *testing.T) (*httptest.Server, func()) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	tokens := auth.NewTokenManager([]byte("test-signing-key"), time.Hour)

	userRepo := repositories.NewUserRepository(db)
	chatRepo := repositories.NewChatRepository(db)
	msgRepo := repositories.NewMessageRepository(db, log, nil)
	statusRepo := repositories.NewStatusRepository(db)
	callRepo := repositories.NewCallRepository(db)

	registry := runtime.NewRegistry()
	router := workers.NewRouter(log, registry, notify.NewLogNotifier(log), 64)

	system := services.NewSystemMessenger(msgRepo, chatRepo, router, log)
	userSvc := services.NewUserService(userRepo, chatRepo, tokens, system, log)
	chatSvc := services.NewChatService(chatRepo, userRepo, msgRepo, system, log)
	msgSvc := services.NewMessageService(msgRepo, chatRepo, userRepo, router, log)
	statusSvc := services.NewStatusService(statusRepo, chatRepo, userRepo)
	callSvc := services.NewCallService(callRepo, userRepo)
	presence := services.NewPresenceService(userRepo, registry, router, log)

	ws := gateway.NewGateway(log, tokens, presence, router, 16, true)
	server := NewServer(log, tokens, userSvc, chatSvc, msgSvc, statusSvc, callSvc)

	ts := httptest.NewServer(server.Router(ws))
	return ts, func() {
		ts.Close()
		db.Close()
	}
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

var mobileSeq atomic.Int64

func registerUser(t *testing.T, base, username string) *client {
	c := &client{t: t, base: base}
	resp, body := c.do(http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "Test",
		"last_name":  "User",
		"username":   username,
		"email":      username + "@example.com",
		"mobile":     fmt.Sprintf("+3361%08d", mobileSeq.Add(1)),
		"password":   "Str0ng&Secret12",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c.token = body["access_token"].(string)
	return c
}

func TestAPI_Register_Login_Flow(t *testing.T) {
	req := require.New(t)
	ts, cleanup := newTestServer(t)
	defer cleanup()

	c := registerUser(t, ts.URL, "alice")
	req.NotEmpty(c.token)

	// The profile endpoint recognizes the token
	resp, profile := c.do(http.MethodGet, "/api/users/me", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("alice", profile["Username"])

	// Login with the password issues a fresh token
	anon := &client{t: t, base: ts.URL}
	resp, body := anon.do(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "Str0ng&Secret12",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	req.NotEmpty(body["access_token"])

	// A wrong password is unauthorized
	resp, body = anon.do(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "Wr0ng&Secret123",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Equal("authorization", body["kind"])

	// Re-registering the same username conflicts
	resp, body = anon.do(http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "Other",
		"username":   "alice",
		"email":      "other@example.com",
		"mobile":     "+33698765432",
		"password":   "Str0ng&Secret12",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)
	req.Equal("conflict", body["kind"])
}

func TestAPI_Requires_A_Token(t *testing.T) {
	req := require.New(t)
	ts, cleanup := newTestServer(t)
	defer cleanup()

	anon := &client{t: t, base: ts.URL}
	resp, body := anon.do(http.MethodGet, "/api/chats", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Equal("authorization", body["kind"])

	anon.token = "garbage"
	resp, _ = anon.do(http.MethodGet, "/api/chats", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Group_And_Message_Flow(t *testing.T) {
	req := require.New(t)
	ts, cleanup := newTestServer(t)
	defer cleanup()

	alice := registerUser(t, ts.URL, "alicegroup")
	bob := registerUser(t, ts.URL, "bobgroup")

	// Bob's id comes from search
	resp, _ := alice.do(http.MethodGet, "/api/users/search?q=bobgroup", nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	respProfile, bobProfile := bob.do(http.MethodGet, "/api/users/me", nil)
	req.Equal(http.StatusOK, respProfile.StatusCode)
	bobID := bobProfile["ID"].(string)

	// Alice creates a group with bob
	resp, group := alice.do(http.MethodPost, "/api/groups", map[string]any{
		"name":    "Weekend Trip",
		"members": []string{bobID},
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	chatID := group["ID"].(string)

	// An empty name is a validation failure
	resp, body := alice.do(http.MethodPost, "/api/groups", map[string]any{
		"name":    "  ",
		"members": []string{bobID},
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal("validation", body["kind"])

	// Alice posts, bob reads
	resp, _ = alice.do(http.MethodPost, "/api/chats/"+chatID+"/messages", map[string]any{
		"content": "hello bob",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	resp, listing := bob.do(http.MethodGet, "/api/chats/"+chatID+"/messages", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	messages := listing["messages"].([]any)
	req.NotEmpty(messages)
	newest := messages[0].(map[string]any)
	req.Equal("hello bob", newest["Content"])

	// An unknown chat is not found
	resp, body = alice.do(http.MethodGet, "/api/chats/no-such-chat", nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)
	req.Equal("not_found", body["kind"])

	// A non-member is rejected
	carol := registerUser(t, ts.URL, "carolgroup")
	resp, body = carol.do(http.MethodGet, "/api/chats/"+chatID, nil)
	req.Equal(http.StatusForbidden, resp.StatusCode)
	req.Equal("authorization", body["kind"])
}
