// Package service contains the relay's application services: credentials,
// sessions, the key directory, contact requests, the message relay and admin.
package service

import (
	"context"
	"errors"

	pkgcrypto "github.com/and161185/cryptachat/internal/crypto"
	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/limiter"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// AuthService defines registration and login.
type AuthService interface {
	// Register creates a new user with a freshly salted password hash.
	Register(ctx context.Context, username, password string) (uuid.UUID, error)
	// Verify checks a username/password pair.
	Verify(ctx context.Context, username, password string) (*model.User, error)
	// LoginWithIP applies login lockout, verifies credentials and issues a session token.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error)
}

type AuthServiceImpl struct {
	users    repository.UserRepository
	hasher   pkgcrypto.Hasher
	sessions *SessionAuthority
	lim      limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, hasher pkgcrypto.Hasher, sessions *SessionAuthority, lim limiter.Limiter) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, hasher: hasher, sessions: sessions, lim: lim}
}

// Register hashes the password and inserts the user. Username uniqueness is left to the store.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (uuid.UUID, error) {
	if username == "" || password == "" {
		return uuid.Nil, errs.Validation("username and password are required")
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return uuid.Nil, err
	}
	u := &model.User{ID: uid, Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return uuid.Nil, err
	}
	return uid, nil
}

// Verify returns the user if password matches its stored hash.
// An unknown username and a wrong password are indistinguishable.
func (s *AuthServiceImpl) Verify(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, errs.Validation("username and password are required")
	}
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := pkgcrypto.VerifyPassword(u.PasswordHash, password)
	if err != nil || !ok {
		return nil, errs.ErrInvalidCredentials
	}
	return u, nil
}

// LoginWithIP authenticates with lockout keyed by (username, client address).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error) {
	key := limiter.KeyFor(username, ip)

	wait, err := s.lim.Allow(ctx, key)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if wait > 0 {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.Verify(ctx, username, password)
	if err != nil {
		if !errors.Is(err, errs.ErrInvalidCredentials) {
			return model.Tokens{}, model.User{}, err
		}
		if blocked, ferr := s.lim.Failure(ctx, key); ferr == nil && blocked > 0 {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		return model.Tokens{}, model.User{}, err
	}

	// best-effort
	_ = s.lim.Success(ctx, key)

	tok, err := s.sessions.Issue(u.ID, u.Username)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}
