package repository

import (
	"context"

	"github.com/and161185/cryptachat/internal/model"
	"github.com/gofrs/uuid/v5"
)

// MessageRepository is the append-only envelope log.
type MessageRepository interface {
	// Append resolves recipientUsername and stores one envelope; returns the stored message.
	Append(ctx context.Context, senderID uuid.UUID, recipientUsername string, senderBlob, recipientBlob model.EncryptedBlob) (*model.Message, error)
	// Since returns messages between myID and partnerUsername with id > sinceID,
	// each exposing the blob for myID's role.
	Since(ctx context.Context, myID uuid.UUID, partnerUsername string, sinceID int64) ([]model.MessageView, error)
}
