// Package gateway is the websocket transport boundary. It authenticates the
// connection, registers a session sink with the presence service, relays
// client frames to the core, and streams domain events back out.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chatify/auth"
	"chatify/domain/event"
	"chatify/runtime/workers"
	"chatify/services"
	"chatify/sink"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout      = 10 * time.Second
	keepAliveInterval = 25 * time.Second
)

// Frame is the wire envelope, both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type chatPayload struct {
	ChatID string `json:"chat_id"`
}

type Gateway struct {
	log        *slog.Logger
	tokens     *auth.TokenManager
	presence   *services.PresenceService
	router     *workers.Router
	bufferSize int
	// devOrigins disables origin verification for local frontends.
	devOrigins bool
}

func NewGateway(
	log *slog.Logger,
	tokens *auth.TokenManager,
	presence *services.PresenceService,
	router *workers.Router,
	bufferSize int,
	devOrigins bool,
) *Gateway {
	return &Gateway{
		log:        log,
		tokens:     tokens,
		presence:   presence,
		router:     router,
		bufferSize: bufferSize,
		devOrigins: devOrigins,
	}
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects. Browsers cannot set an Authorization header on a native
// websocket, so the token travels as a query parameter.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := g.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: g.devOrigins,
	})
	if err != nil {
		return
	}

	sessionID := uuid.NewString()
	sessionSink := sink.NewSessionSink(g.bufferSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	g.presence.Connect(sessionID, sessionSink)
	defer g.presence.Disconnect(sessionID)

	g.log.Info("Session connected", "session_id", sessionID, "user_id", userID)
	go g.writeLoop(ctx, conn, sessionSink)
	go g.keepAlive(ctx, conn)

	g.readLoop(ctx, conn, sessionID, userID)
	g.log.Info("Session closed", "session_id", sessionID, "user_id", userID)
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

// readLoop dispatches client frames until the connection drops. An
// unreadable frame ends the session; an unknown event only logs.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, sessionID, userID string) {
	for {
		var frame Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}

		switch frame.Event {
		case "setup":
			g.presence.Setup(sessionID, userID)
		case "join_chat":
			var p chatPayload
			if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" {
				continue
			}
			g.presence.JoinChat(sessionID, p.ChatID)
		case "typing":
			var p chatPayload
			if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" {
				continue
			}
			g.router.DeliverToRoom(p.ChatID, sessionID, event.Typing{ChatID: p.ChatID, UserID: userID})
		case "stop_typing":
			var p chatPayload
			if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" {
				continue
			}
			g.router.DeliverToRoom(p.ChatID, sessionID, event.StopTyping{ChatID: p.ChatID, UserID: userID})
		default:
			g.log.Debug("Unknown client event", "event", frame.Event, "session_id", sessionID)
		}
	}
}

func (g *Gateway) writeLoop(ctx context.Context, conn *websocket.Conn, s *sink.SessionSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.Events:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, outbound(e))
			cancel()
			if err != nil {
				g.log.Debug("Session write failed", "event", e.Name(), "error", err)
				return
			}
		}
	}
}

func (g *Gateway) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			_ = conn.Ping(pingCtx)
			cancel()
		}
	}
}

func outbound(e event.DomainEvent) map[string]any {
	return map[string]any{"event": e.Name(), "data": e}
}
