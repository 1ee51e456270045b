package repository

import (
	"context"

	"github.com/and161185/cryptachat/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AdminRepository is direct, privileged store access for the admin console.
type AdminRepository interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListPublicKeys(ctx context.Context) ([]model.PublicKey, error)
	ListMessages(ctx context.Context) ([]model.Message, error)
	ListChatRequests(ctx context.Context) ([]model.ChatRequest, error)
	// CountReferences reports what DeleteUserCascade would remove for userID.
	CountReferences(ctx context.Context, userID uuid.UUID) (model.CascadeResult, error)
	// DeleteUserCascade removes the user and every row referencing it in one transaction.
	DeleteUserCascade(ctx context.Context, userID uuid.UUID) (model.CascadeResult, error)
}
