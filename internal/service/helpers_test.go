package service

import (
	"context"
	"testing"
	"time"

	pkgcrypto "github.com/and161185/cryptachat/internal/crypto"
	"github.com/and161185/cryptachat/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	store    *memStore
	lim      *fakeLimiter
	sessions *SessionAuthority
	auth     *AuthServiceImpl
	keys     *KeyServiceImpl
	contacts *ContactServiceImpl
	msgs     *MessageServiceImpl
	admin    *AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := newMemStore()
	lim := &fakeLimiter{}
	sa := NewSessionAuthority(st, []byte("test-secret"), time.Hour)
	return &env{
		store:    st,
		lim:      lim,
		sessions: sa,
		auth:     NewAuthService(st, pkgcrypto.Bcrypt{Cost: bcrypt.MinCost}, sa, lim),
		keys:     NewKeyService(keyRepo{st}),
		contacts: NewContactService(st),
		msgs:     NewMessageService(st),
		admin:    NewAdminService(st),
	}
}

func (e *env) register(t *testing.T, name string) model.Identity {
	t.Helper()
	id, err := e.auth.Register(context.Background(), name, name+"-pw")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return model.Identity{UserID: id, Username: name}
}
