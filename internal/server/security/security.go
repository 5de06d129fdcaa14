// Package security implements password hashing and verification with the
// per-user salt and the process-wide pepper applied on top of argon2id.
package security

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/dpetrovsky/webauth/internal/common"
	"github.com/dpetrovsky/webauth/internal/cryptox"
)

// Hasher is the hashing backend used by the service. *cryptox.Argon2Hasher
// is the production implementation.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
}

// Service hashes and verifies passwords. Hashing is deliberately expensive
// CPU work, so the service holds a weighted semaphore sized to GOMAXPROCS:
// concurrent requests queue for a hashing slot instead of oversubscribing
// the CPUs that also service network I/O.
type Service struct {
	hasher Hasher
	pepper string
	lane   *semaphore.Weighted
}

// NewService constructs a Service around the given hasher and pepper.
func NewService(hasher Hasher, pepper string) *Service {
	return &Service{
		hasher: hasher,
		pepper: pepper,
		lane:   semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// preimage builds the string fed to the hashing algorithm: the per-user salt,
// the plaintext, then the process-wide pepper. Order is part of the stored
// hash contract and must never change.
func (s *Service) preimage(salt, password string) string {
	return salt + password + s.pepper
}

// HashPassword hashes the salted and peppered password. Errors indicate
// hasher misconfiguration or RNG failure, never bad credentials.
func (s *Service) HashPassword(ctx context.Context, salt, password string) (string, error) {
	if err := s.lane.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.lane.Release(1)

	hashed, err := s.hasher.Hash(s.preimage(salt, password))
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return hashed, nil
}

// VerifyPassword recomputes the salted and peppered preimage and verifies it
// against hashedPassword. A mismatch, a malformed stored hash, and a verifier
// failure all surface as common.ErrorInvalidPassword: the caller learns that
// the credentials do not verify and nothing else.
func (s *Service) VerifyPassword(ctx context.Context, salt, password, hashedPassword string) error {
	if err := s.lane.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.lane.Release(1)

	ok, err := s.hasher.Verify(s.preimage(salt, password), hashedPassword)
	if err != nil {
		if errors.Is(err, cryptox.ErrInvalidHash) {
			return common.ErrorInvalidPassword
		}
		return fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return common.ErrorInvalidPassword
	}
	return nil
}
