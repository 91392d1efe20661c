package api

import (
	"net/http"

	"chatify/domain"
	"chatify/repositories"

	"github.com/gorilla/mux"
)

func (s *Server) handleCreateDirectChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string `json:"user_id"`
		FoundByMobile bool   `json:"found_by_mobile"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	chat, err := s.chats.CreateDirectChat(actor(r), req.UserID, req.FoundByMobile)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, chat)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string   `json:"name"`
		Members   []string `json:"members"`
		IsPrivate bool     `json:"is_private"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	chat, err := s.chats.CreateGroup(actor(r), req.Name, req.Members, req.IsPrivate)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, chat)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.ListChats(actor(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, chats)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := s.chats.GetChat(actor(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, chat)
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	group, err := s.chats.RenameGroup(actor(r), mux.Vars(r)["id"], req.Name)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, group)
}

func (s *Server) handleUpdateGroupInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	group, err := s.chats.UpdateGroupInfo(actor(r), mux.Vars(r)["id"], req.Description, req.Icon)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, group)
}

func (s *Server) handleUpdateGroupSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OnlyAdminsPost bool `json:"only_admins_post"`
		HideMembers    bool `json:"hide_members"`
		IsPrivate      bool `json:"is_private"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	group, err := s.chats.UpdateGroupSettings(actor(r), mux.Vars(r)["id"], domain.GroupSettings{
		OnlyAdminsPost: req.OnlyAdminsPost,
		HideMembers:    req.HideMembers,
		IsPrivate:      req.IsPrivate,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, group)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	chat, err := s.chats.AddMember(actor(r), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, chat)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chat, err := s.chats.RemoveMember(actor(r), vars["id"], vars["userId"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, chat)
}

func (s *Server) handleMakeAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	group, err := s.chats.MakeAdmin(actor(r), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, group)
}

func (s *Server) handleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	group, err := s.chats.RemoveAdmin(actor(r), vars["id"], vars["userId"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.DeleteGroup(actor(r), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleRequestJoin(w http.ResponseWriter, r *http.Request) {
	status, err := s.chats.RequestJoin(actor(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleResolveJoinRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	vars := mux.Vars(r)
	if err := s.chats.ResolveJoinRequest(actor(r), vars["id"], vars["userId"], req.Accept); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleToggleMute(w http.ResponseWriter, r *http.Request) {
	s.toggleMarker(w, r, repositories.MarkerMuted)
}

func (s *Server) handleToggleArchive(w http.ResponseWriter, r *http.Request) {
	s.toggleMarker(w, r, repositories.MarkerArchived)
}

func (s *Server) handleToggleSharePhone(w http.ResponseWriter, r *http.Request) {
	s.toggleMarker(w, r, repositories.MarkerSharedPhone)
}

func (s *Server) toggleMarker(w http.ResponseWriter, r *http.Request, marker repositories.Marker) {
	chatID := mux.Vars(r)["id"]
	var (
		state bool
		err   error
	)
	switch marker {
	case repositories.MarkerMuted:
		state, err = s.chats.ToggleMute(actor(r), chatID)
	case repositories.MarkerArchived:
		state, err = s.chats.ToggleArchive(actor(r), chatID)
	default:
		state, err = s.chats.ToggleSharePhone(actor(r), chatID)
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]bool{string(marker): state})
}

func (s *Server) handleSoftDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.chats.SoftDeleteChat(actor(r), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}
