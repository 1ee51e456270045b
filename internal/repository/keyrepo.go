package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// KeyRepository stores one public key per user.
type KeyRepository interface {
	// Upsert replaces the user's key, creating it on first upload.
	Upsert(ctx context.Context, userID uuid.UUID, publicKey string) error
	// GetByUsername returns the key of the named user, or errs.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (string, error)
}
