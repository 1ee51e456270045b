package repository

import (
	"context"

	"github.com/and161185/cryptachat/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ChatRepository persists the contact request state machine.
type ChatRepository interface {
	// CreateRequest resolves requestedUsername and inserts a pending request.
	CreateRequest(ctx context.Context, requesterID uuid.UUID, requestedUsername string) error
	// Accept moves the pending request requesterUsername -> accepterID to accepted.
	Accept(ctx context.Context, accepterID uuid.UUID, requesterUsername string) error
	// ListPending returns pending requests addressed to userID.
	ListPending(ctx context.Context, userID uuid.UUID) ([]model.PendingRequest, error)
	// ListContacts returns usernames linked to userID by an accepted request in either direction.
	ListContacts(ctx context.Context, userID uuid.UUID) ([]string, error)
}
