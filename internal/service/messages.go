package service

import (
	"context"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/repository"
)

// MessageService relays opaque envelopes between users.
type MessageService interface {
	// Send stores one envelope carrying a ciphertext for each party.
	// Sending does not require an accepted contact request.
	Send(ctx context.Context, me model.Identity, recipientUsername string, senderBlob, recipientBlob model.EncryptedBlob) (*model.Message, error)
	// Fetch returns the conversation with partnerUsername after sinceID.
	Fetch(ctx context.Context, me model.Identity, partnerUsername string, sinceID int64) ([]model.MessageView, error)
}

type MessageServiceImpl struct {
	msgs repository.MessageRepository
}

// NewMessageService constructs MessageService.
func NewMessageService(msgs repository.MessageRepository) *MessageServiceImpl {
	return &MessageServiceImpl{msgs: msgs}
}

func (s *MessageServiceImpl) Send(
	ctx context.Context, me model.Identity, recipientUsername string, senderBlob, recipientBlob model.EncryptedBlob,
) (*model.Message, error) {
	if recipientUsername == "" {
		return nil, errs.Validation("recipient_username is required")
	}
	if senderBlob == "" || recipientBlob == "" {
		return nil, errs.ErrInvalidPayload
	}
	return s.msgs.Append(ctx, me.UserID, recipientUsername, senderBlob, recipientBlob)
}

func (s *MessageServiceImpl) Fetch(ctx context.Context, me model.Identity, partnerUsername string, sinceID int64) ([]model.MessageView, error) {
	if partnerUsername == "" {
		return nil, errs.Validation("username is required")
	}
	if sinceID < 0 {
		return nil, errs.Validation("since_id must not be negative")
	}
	return s.msgs.Since(ctx, me.UserID, partnerUsername, sinceID)
}
