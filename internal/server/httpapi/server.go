// Package httpapi exposes the authentication operations over HTTP and owns
// the cookie handling for both authenticated and guest sessions.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dpetrovsky/webauth/internal/logging"
	"github.com/dpetrovsky/webauth/internal/server/guest"
	"github.com/dpetrovsky/webauth/internal/server/models"
	"github.com/dpetrovsky/webauth/internal/server/sessions"
)

// SessionCookie carries the authenticated session identifier.
const SessionCookie = "session_id"

const shutdownTimeout = 5 * time.Second

// UserProvider is the service surface the HTTP layer needs.
type UserProvider interface {
	Login(ctx context.Context, username, password string) (int64, error)
	Signup(ctx context.Context, username, password string) (*models.PublicUser, error)
	GetUser(ctx context.Context, userID int64) (*models.PublicUser, error)
}

type Server struct {
	address string
	logger  logging.Logger
	users   UserProvider
	store   sessions.Store
	guests  *guest.Manager
}

func NewServer(a string, l logging.Logger, users UserProvider, store sessions.Store, guests *guest.Manager) *Server {
	return &Server{
		address: a,
		logger:  l.With("module", "http_server"),
		users:   users,
		store:   store,
		guests:  guests,
	}
}

// Handler builds the route table. Split out from Run so tests can drive the
// mux through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /me", s.handleMe)
	mux.HandleFunc("POST /guest/data", s.handleGuestData)
	mux.HandleFunc("DELETE /guest", s.handleGuestDelete)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
