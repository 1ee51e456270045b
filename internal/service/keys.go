package service

import (
	"context"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/repository"
)

// KeyService is the public key directory.
type KeyService interface {
	// Upload replaces the caller's public key.
	Upload(ctx context.Context, me model.Identity, publicKey string) error
	// Lookup returns the key of any user by username.
	Lookup(ctx context.Context, username string) (string, error)
}

type KeyServiceImpl struct {
	keys repository.KeyRepository
}

// NewKeyService constructs KeyService.
func NewKeyService(keys repository.KeyRepository) *KeyServiceImpl {
	return &KeyServiceImpl{keys: keys}
}

func (s *KeyServiceImpl) Upload(ctx context.Context, me model.Identity, publicKey string) error {
	if publicKey == "" {
		return errs.Validation("public_key is required")
	}
	return s.keys.Upsert(ctx, me.UserID, publicKey)
}

func (s *KeyServiceImpl) Lookup(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", errs.Validation("username is required")
	}
	return s.keys.GetByUsername(ctx, username)
}
