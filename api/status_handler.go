package api

import (
	"net/http"
	"time"

	"chatify/domain"

	"github.com/gorilla/mux"
)

func (s *Server) handleCreateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID  string `json:"chat_id"`
		Type    string `json:"type"`
		Content string `json:"content"`
		Caption string `json:"caption"`
		Color   string `json:"color"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	status, err := s.statuses.CreateStatus(actor(r), req.ChatID, domain.StatusType(req.Type), req.Content, req.Caption, req.Color)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, status)
}

func (s *Server) handleGetStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.statuses.GetStatuses(actor(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, statuses)
}

func (s *Server) handleViewStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.statuses.ViewStatus(actor(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, status)
}

func (s *Server) handleToggleLikeStatus(w http.ResponseWriter, r *http.Request) {
	liked, err := s.statuses.ToggleLike(actor(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *Server) handleLogCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiverID string    `json:"receiver_id"`
		Type       string    `json:"type"`
		Status     string    `json:"status"`
		StartedAt  time.Time `json:"started_at"`
		EndedAt    time.Time `json:"ended_at"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	call, err := s.calls.LogCall(actor(r), req.ReceiverID, domain.CallType(req.Type), domain.CallStatus(req.Status), req.StartedAt, req.EndedAt)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, call)
}

func (s *Server) handleCallHistory(w http.ResponseWriter, r *http.Request) {
	calls, err := s.calls.History(actor(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, calls)
}
