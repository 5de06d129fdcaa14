// Package sessions stores authenticated-session records in a key-value
// backend under an opaque 128-bit session identifier. Records expire after a
// fixed TTL that is reset on every write; reads never extend it.
package sessions

import (
	"context"

	"github.com/google/uuid"
)

// Session is the record stored for an authenticated session.
type Session struct {
	UserID int64 `json:"user_id"`
}

// Store persists authenticated sessions.
//
// Read returns (nil, nil) when the session does not exist or has expired:
// absence is an outcome, not an error. Delete of a missing session is a
// no-op. Concurrent writes to the same session race with last-write-wins
// semantics; there is no optimistic locking.
type Store interface {
	Create(ctx context.Context, sessionID uuid.UUID, data *Session) error
	Read(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	Update(ctx context.Context, sessionID uuid.UUID, data *Session) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
}
