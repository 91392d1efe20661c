package api

import (
	"net/http"

	"chatify/auth"
	"chatify/domain"
	"chatify/services"

	"github.com/gorilla/mux"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		Mobile    string `json:"mobile"`
		Password  string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	user, token, err := s.users.Register(auth.RegisterRequest{
		Name:     req.FirstName,
		Email:    req.Email,
		Username: req.Username,
		Mobile:   req.Mobile,
		Password: req.Password,
	}, req.FirstName, req.LastName)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]any{
		"user":         user.Profile(),
		"access_token": token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	user, token, err := s.users.Login(req.Email, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"user":         user.Profile(),
		"access_token": token,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.users.GetProfile(actor(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName *string         `json:"first_name"`
		LastName  *string         `json:"last_name"`
		Username  *string         `json:"username"`
		Mobile    *string         `json:"mobile"`
		About     *string         `json:"about"`
		Pic       *string         `json:"pic"`
		Gender    *string         `json:"gender"`
		Privacy   *domain.Privacy `json:"privacy"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}

	user, err := s.users.UpdateProfile(actor(r), services.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Mobile:    req.Mobile,
		About:     req.About,
		Pic:       req.Pic,
		Gender:    req.Gender,
		Privacy:   req.Privacy,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, user.Profile())
}

func (s *Server) handleSetFCMToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.users.SetFCMToken(actor(r), req.Token); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.users.Search(actor(r), r.URL.Query().Get("q"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, profiles)
}

func (s *Server) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	blocked, err := s.users.ToggleBlock(actor(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]bool{"blocked": blocked})
}
