package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dpetrovsky/webauth/internal/common"
	"github.com/dpetrovsky/webauth/internal/server/sessions"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID int64 `json:"user_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, errorResponse{Error: msg})
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (*credentials, bool) {
	creds := &credentials{}
	if err := json.NewDecoder(r.Body).Decode(creds); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if creds.Username == "" || creds.Password == "" {
		s.writeError(w, http.StatusBadRequest, "username and password are required")
		return nil, false
	}
	return creds, true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := s.users.Signup(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUserAlreadyExists) {
			s.writeError(w, http.StatusConflict, "user already exists")
			return
		}
		s.logger.Error(ctx, err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info(ctx, "Registered", "username", user.Username)
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	userID, err := s.users.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUserNotFound):
			s.writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, common.ErrorInvalidPassword):
			s.writeError(w, http.StatusUnauthorized, "invalid password")
		default:
			s.logger.Error(ctx, err.Error())
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	sessionID, err := uuid.NewRandom()
	if err != nil {
		s.logger.Error(ctx, err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.store.Create(ctx, sessionID, &sessions.Session{UserID: userID}); err != nil {
		s.logger.Error(ctx, err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// A successful login supersedes any guest state the client carried.
	http.SetCookie(w, s.sessionCookie(sessionID.String()))
	s.guests.Delete(w)

	s.logger.Info(ctx, "Logged in", "username", creds.Username)
	s.writeJSON(w, http.StatusOK, loginResponse{UserID: userID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if sessionID, ok := s.sessionID(r); ok {
		if err := s.store.Delete(ctx, sessionID); err != nil {
			s.logger.Error(ctx, err.Error())
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	http.SetCookie(w, s.expiredSessionCookie())

	// The client continues as a fresh guest.
	if _, err := s.guests.Create(w); err != nil {
		s.logger.Error(ctx, err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, ok := s.sessionID(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := s.store.Read(ctx, sessionID)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if session == nil {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorUserNotFound) {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error(ctx, err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGuestData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fields := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, ok := s.guests.Get(r); !ok {
		if _, err := s.guests.Create(w); err != nil {
			s.logger.Error(ctx, err.Error())
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if err := s.guests.UpdateData(r, w, fields); err != nil {
		s.logger.Error(ctx, err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleGuestDelete(w http.ResponseWriter, r *http.Request) {
	s.guests.Delete(w)
	w.WriteHeader(http.StatusNoContent)
}

// sessionID extracts the authenticated session id from the request cookie.
// Missing or malformed cookies are reported as absent.
func (s *Server) sessionID(r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) sessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) expiredSessionCookie() *http.Cookie {
	c := s.sessionCookie("")
	c.MaxAge = -1
	return c
}
