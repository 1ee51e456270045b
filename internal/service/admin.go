package service

import (
	"context"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// AdminService is the privileged console's view of the store. It bypasses sessions.
type AdminService struct {
	repo repository.AdminRepository
}

// NewAdminService constructs AdminService.
func NewAdminService(repo repository.AdminRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) Users(ctx context.Context) ([]model.User, error) { return s.repo.ListUsers(ctx) }

func (s *AdminService) PublicKeys(ctx context.Context) ([]model.PublicKey, error) {
	return s.repo.ListPublicKeys(ctx)
}

func (s *AdminService) Messages(ctx context.Context) ([]model.Message, error) {
	return s.repo.ListMessages(ctx)
}

func (s *AdminService) ChatRequests(ctx context.Context) ([]model.ChatRequest, error) {
	return s.repo.ListChatRequests(ctx)
}

// Impact reports the rows DeleteUser would remove.
func (s *AdminService) Impact(ctx context.Context, userID uuid.UUID) (model.CascadeResult, error) {
	if userID == uuid.Nil {
		return model.CascadeResult{}, errs.Validation("user id is required")
	}
	return s.repo.CountReferences(ctx, userID)
}

// DeleteUser removes the user with its key, messages and chat requests atomically.
func (s *AdminService) DeleteUser(ctx context.Context, userID uuid.UUID) (model.CascadeResult, error) {
	if userID == uuid.Nil {
		return model.CascadeResult{}, errs.Validation("user id is required")
	}
	return s.repo.DeleteUserCascade(ctx, userID)
}
