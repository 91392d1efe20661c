// Package api exposes the request boundary over HTTP. Handlers decode the
// request, call the service with the authenticated actor id, and map the
// error kind to a status code. No domain rule lives here.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"chatify/auth"
	"chatify/errors"
	"chatify/gateway"
	"chatify/services"

	"github.com/gorilla/mux"
)

type contextKey string

const actorKey contextKey = "actor"

type Server struct {
	log      *slog.Logger
	tokens   *auth.TokenManager
	users    services.IUserService
	chats    services.IChatService
	messages services.IMessageService
	statuses services.IStatusService
	calls    services.ICallService
}

func NewServer(
	log *slog.Logger,
	tokens *auth.TokenManager,
	users services.IUserService,
	chats services.IChatService,
	messages services.IMessageService,
	statuses services.IStatusService,
	calls services.ICallService,
) *Server {
	return &Server{
		log:      log,
		tokens:   tokens,
		users:    users,
		chats:    chats,
		messages: messages,
		statuses: statuses,
		calls:    calls,
	}
}

// Router wires every route. The websocket gateway is mounted alongside the
// REST routes so one listener serves both.
func (s *Server) Router(ws *gateway.Gateway) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)

	r.Handle("/ws", ws)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(s.authenticate)

	authed.HandleFunc("/users/me", s.handleGetProfile).Methods(http.MethodGet)
	authed.HandleFunc("/users/me", s.handleUpdateProfile).Methods(http.MethodPatch)
	authed.HandleFunc("/users/me/fcm-token", s.handleSetFCMToken).Methods(http.MethodPost)
	authed.HandleFunc("/users/search", s.handleSearch).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/block", s.handleToggleBlock).Methods(http.MethodPost)

	authed.HandleFunc("/chats", s.handleListChats).Methods(http.MethodGet)
	authed.HandleFunc("/chats/direct", s.handleCreateDirectChat).Methods(http.MethodPost)
	authed.HandleFunc("/chats/{id}", s.handleGetChat).Methods(http.MethodGet)
	authed.HandleFunc("/chats/{id}", s.handleSoftDeleteChat).Methods(http.MethodDelete)
	authed.HandleFunc("/chats/{id}/mute", s.handleToggleMute).Methods(http.MethodPost)
	authed.HandleFunc("/chats/{id}/archive", s.handleToggleArchive).Methods(http.MethodPost)
	authed.HandleFunc("/chats/{id}/share-phone", s.handleToggleSharePhone).Methods(http.MethodPost)

	authed.HandleFunc("/groups", s.handleCreateGroup).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{id}", s.handleDeleteGroup).Methods(http.MethodDelete)
	authed.HandleFunc("/groups/{id}/name", s.handleRenameGroup).Methods(http.MethodPatch)
	authed.HandleFunc("/groups/{id}/info", s.handleUpdateGroupInfo).Methods(http.MethodPatch)
	authed.HandleFunc("/groups/{id}/settings", s.handleUpdateGroupSettings).Methods(http.MethodPatch)
	authed.HandleFunc("/groups/{id}/members", s.handleAddMember).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{id}/members/{userId}", s.handleRemoveMember).Methods(http.MethodDelete)
	authed.HandleFunc("/groups/{id}/admins", s.handleMakeAdmin).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{id}/admins/{userId}", s.handleRemoveAdmin).Methods(http.MethodDelete)
	authed.HandleFunc("/groups/{id}/join", s.handleRequestJoin).Methods(http.MethodPost)
	authed.HandleFunc("/groups/{id}/requests/{userId}", s.handleResolveJoinRequest).Methods(http.MethodPost)

	authed.HandleFunc("/chats/{id}/messages", s.handlePostMessage).Methods(http.MethodPost)
	authed.HandleFunc("/chats/{id}/messages", s.handleListMessages).Methods(http.MethodGet)
	authed.HandleFunc("/messages/{id}/reactions", s.handleReact).Methods(http.MethodPost)
	authed.HandleFunc("/messages/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
	authed.HandleFunc("/messages/{id}", s.handleSoftDeleteMessage).Methods(http.MethodDelete)

	authed.HandleFunc("/statuses", s.handleCreateStatus).Methods(http.MethodPost)
	authed.HandleFunc("/statuses", s.handleGetStatuses).Methods(http.MethodGet)
	authed.HandleFunc("/statuses/{id}/view", s.handleViewStatus).Methods(http.MethodPost)
	authed.HandleFunc("/statuses/{id}/like", s.handleToggleLikeStatus).Methods(http.MethodPost)

	authed.HandleFunc("/calls", s.handleLogCall).Methods(http.MethodPost)
	authed.HandleFunc("/calls", s.handleCallHistory).Methods(http.MethodGet)

	return r
}

// authenticate resolves the Bearer token to an actor id and stores it in
// the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.respondError(w, errors.ErrInvalidToken)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		userID, err := s.tokens.Verify(token)
		if err != nil {
			s.respondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, userID)))
	})
}

func actor(r *http.Request) string {
	id, _ := r.Context().Value(actorKey).(string)
	return id
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps the error kind to a protocol status code. The body
// carries the stable kind so clients branch on it, not on the message.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	kind := errors.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "validation":
		status = http.StatusBadRequest
	case "authorization":
		status = http.StatusForbidden
		if stderrors.Is(err, errors.ErrInvalidToken) || stderrors.Is(err, errors.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
		}
	case "not_found":
		status = http.StatusNotFound
	case "conflict":
		status = http.StatusConflict
	case "dependency":
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		s.log.Error("Request failed", "kind", kind, "error", err)
	}
	s.respond(w, status, map[string]string{"kind": kind, "message": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Validationf("invalid request body")
	}
	return nil
}
