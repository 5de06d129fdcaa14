// Package services contains server-side business logic. This file implements
// UserService, which handles login, signup, and user lookup on top of the
// credential repository and the security service.
package services

import (
	"context"
	"database/sql"

	"github.com/dpetrovsky/webauth/internal/common"
	"github.com/dpetrovsky/webauth/internal/dbx"
	"github.com/dpetrovsky/webauth/internal/server/models"
	"github.com/dpetrovsky/webauth/internal/server/repositories/repomanager"
	"github.com/dpetrovsky/webauth/internal/server/shared/errs"
)

// saltBytes is the number of random bytes in a per-user salt; hex-encoded it
// fills the 16-character salt column.
const saltBytes = 8

// PasswordVerifier is the part of the security service used by UserService.
type PasswordVerifier interface {
	HashPassword(ctx context.Context, salt, password string) (string, error)
	VerifyPassword(ctx context.Context, salt, password, hashedPassword string) error
}

// UserService provides the authentication operations:
//   - Login: verify credentials and return the user id
//   - Signup: create a user with a fresh salt and hashed password
//   - GetUser: fetch a user's public projection by id
//
// Session establishment is the HTTP layer's job; the service itself never
// touches the session store.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	security    PasswordVerifier
}

// NewUserService constructs a UserService using repositories and the
// security service.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, sec PasswordVerifier) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		security:    sec,
	}
}

// Login fetches the credential record and verifies the password against it.
// An unknown username yields common.ErrorUserNotFound before any hashing
// work; a failed verification yields common.ErrorInvalidPassword.
func (s *UserService) Login(ctx context.Context, username, password string) (int64, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}

	if err := s.security.VerifyPassword(ctx, user.Salt, password, user.HashedPassword); err != nil {
		return 0, err
	}

	return user.ID, nil
}

// Signup registers a new user. The hash is computed before the persistence
// attempt so a storage failure never leaves a half-hashed record. Insert and
// the follow-up read run in one transaction, so the read observes the fresh
// row before commit. Any persistence failure is translated towards
// common.ErrorUserAlreadyExists: a uniqueness conflict becomes the bare
// domain error, anything else keeps its detail attached.
func (s *UserService) Signup(ctx context.Context, username, password string) (*models.PublicUser, error) {
	salt, err := common.MakeRandHexString(saltBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	hashed, err := s.security.HashPassword(ctx, salt, password)
	if err != nil {
		return nil, err
	}

	var public *models.PublicUser
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.Create(ctx, &models.User{
			Username:       username,
			Salt:           salt,
			HashedPassword: hashed,
		}); err != nil {
			return err
		}

		created, err := repo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		public = created.Public()
		return nil
	}); err != nil {
		return nil, errs.Translate(err, common.ErrorUserAlreadyExists)
	}

	return public, nil
}

// GetUser returns the public projection of the user with the given id, or
// common.ErrorUserNotFound.
func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.PublicUser, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return user.Public(), nil
}
