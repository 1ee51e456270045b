package service

import (
	"context"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/repository"
)

// ContactService runs the request/accept handshake. Accepted is terminal and
// there is no decline: an unanswered request stays pending.
type ContactService interface {
	Request(ctx context.Context, me model.Identity, requestedUsername string) error
	Accept(ctx context.Context, me model.Identity, requesterUsername string) error
	ListPending(ctx context.Context, me model.Identity) ([]model.PendingRequest, error)
	ListContacts(ctx context.Context, me model.Identity) ([]string, error)
}

type ContactServiceImpl struct {
	chats repository.ChatRepository
}

// NewContactService constructs ContactService.
func NewContactService(chats repository.ChatRepository) *ContactServiceImpl {
	return &ContactServiceImpl{chats: chats}
}

// Request opens a pending request from me to requestedUsername.
func (s *ContactServiceImpl) Request(ctx context.Context, me model.Identity, requestedUsername string) error {
	if requestedUsername == "" {
		return errs.Validation("recipient_username is required")
	}
	if requestedUsername == me.Username {
		return errs.Validation("cannot send chat request to yourself")
	}
	return s.chats.CreateRequest(ctx, me.UserID, requestedUsername)
}

// Accept accepts the pending request requesterUsername -> me.
func (s *ContactServiceImpl) Accept(ctx context.Context, me model.Identity, requesterUsername string) error {
	if requesterUsername == "" {
		return errs.Validation("requester_username is required")
	}
	return s.chats.Accept(ctx, me.UserID, requesterUsername)
}

func (s *ContactServiceImpl) ListPending(ctx context.Context, me model.Identity) ([]model.PendingRequest, error) {
	return s.chats.ListPending(ctx, me.UserID)
}

func (s *ContactServiceImpl) ListContacts(ctx context.Context, me model.Identity) ([]string, error) {
	return s.chats.ListContacts(ctx, me.UserID)
}
