package service

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session lifetime.
const DefaultTokenTTL = 24 * time.Hour

// Authenticator resolves a bearer token into the caller's identity.
type Authenticator interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

type sessionClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionAuthority issues and verifies stateless HS256 session tokens.
type SessionAuthority struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionAuthority constructs a SessionAuthority. A non-positive ttl means DefaultTokenTTL.
func NewSessionAuthority(users repository.UserRepository, secret []byte, ttl time.Duration) *SessionAuthority {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionAuthority{users: users, secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token binding userID and username, valid for the configured TTL.
func (s *SessionAuthority) Issue(userID uuid.UUID, username string) (model.Tokens, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		UserID:   userID.String(),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}

// Verify checks signature and expiry, then confirms the user still exists.
func (s *SessionAuthority) Verify(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, errs.ErrTokenMissing
	}
	var c sessionClaims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.Identity{}, errs.ErrTokenExpired
	case err != nil:
		return model.Identity{}, errs.ErrTokenInvalid
	}

	uid, err := uuid.FromString(c.UserID)
	if err != nil || c.Subject != c.UserID {
		return model.Identity{}, errs.ErrTokenInvalid
	}
	u, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, errs.ErrNotFound) {
		return model.Identity{}, errs.ErrTokenInvalid
	}
	if err != nil {
		return model.Identity{}, err
	}
	if u.Username != c.Username {
		return model.Identity{}, errs.ErrTokenInvalid
	}
	return model.Identity{UserID: u.ID, Username: u.Username}, nil
}
