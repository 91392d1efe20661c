package api

import (
	"net/http"

	"chatify/domain"

	"github.com/gorilla/mux"
)

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Type    string `json:"type"`
		ReplyTo string `json:"reply_to"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Type == "" {
		req.Type = string(domain.MessageText)
	}

	msg, err := s.messages.PostMessage(actor(r), mux.Vars(r)["id"], req.Content, domain.MessageType(req.Type), req.ReplyTo)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := s.messages.ListMessages(actor(r), mux.Vars(r)["id"], cursor)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"messages": messages, "cursor": next})
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	msg, err := s.messages.ReactToMessage(actor(r), mux.Vars(r)["id"], req.Emoji)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, msg)
}

func (s *Server) handleSoftDeleteMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.messages.SoftDeleteMessage(actor(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, msg)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.messages.MarkRead(actor(r), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}
