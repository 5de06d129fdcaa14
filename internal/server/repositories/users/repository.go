package users

import (
	"context"

	"github.com/dpetrovsky/webauth/internal/server/models"
)

// Repository provides access to persisted credential records.
//
// Create surfaces the raw driver error (wrapped) so callers can classify
// uniqueness violations; lookups return common.ErrorUserNotFound when no
// record matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
