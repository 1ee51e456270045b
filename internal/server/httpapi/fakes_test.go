package httpapi

import (
	"context"
	"time"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/service"
	"github.com/gofrs/uuid/v5"
)

type fakeAuth struct {
	users   map[string]string
	ids     map[string]uuid.UUID
	lastIP  string
	failErr error
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, username, password string) (uuid.UUID, error) {
	if username == "" || password == "" {
		return uuid.Nil, errs.Validation("username and password are required")
	}
	if _, ok := f.users[username]; ok {
		return uuid.Nil, errs.ErrDuplicateUsername
	}
	id := uuid.Must(uuid.NewV4())
	f.users[username] = password
	f.ids[username] = id
	return id, nil
}

func (f *fakeAuth) Verify(_ context.Context, username, password string) (*model.User, error) {
	if p, ok := f.users[username]; !ok || p != password {
		return nil, errs.ErrInvalidCredentials
	}
	return &model.User{ID: f.ids[username], Username: username}, nil
}

func (f *fakeAuth) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.User, error) {
	f.lastIP = ip
	if f.failErr != nil {
		return model.Tokens{}, model.User{}, f.failErr
	}
	u, err := f.Verify(ctx, username, password)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: "tok-" + username, ExpiresAt: time.Now().Add(time.Hour)}, *u, nil
}

type fakeSessions map[string]model.Identity

func (f fakeSessions) Verify(_ context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, errs.ErrTokenMissing
	}
	if token == "expired" {
		return model.Identity{}, errs.ErrTokenExpired
	}
	id, ok := f[token]
	if !ok {
		return model.Identity{}, errs.ErrTokenInvalid
	}
	return id, nil
}

type fakeKeys struct{ byName map[string]string }

var _ service.KeyService = (*fakeKeys)(nil)

func (f *fakeKeys) Upload(_ context.Context, me model.Identity, key string) error {
	if key == "" {
		return errs.Validation("public_key is required")
	}
	f.byName[me.Username] = key
	return nil
}

func (f *fakeKeys) Lookup(_ context.Context, username string) (string, error) {
	if username == "" {
		return "", errs.Validation("username is required")
	}
	k, ok := f.byName[username]
	if !ok {
		return "", errs.ErrNotFound
	}
	return k, nil
}

type fakeContacts struct {
	err      error
	lastMe   model.Identity
	lastName string
	pending  []model.PendingRequest
	contacts []string
}

var _ service.ContactService = (*fakeContacts)(nil)

func (f *fakeContacts) Request(_ context.Context, me model.Identity, name string) error {
	f.lastMe, f.lastName = me, name
	return f.err
}

func (f *fakeContacts) Accept(_ context.Context, me model.Identity, name string) error {
	f.lastMe, f.lastName = me, name
	return f.err
}

func (f *fakeContacts) ListPending(_ context.Context, me model.Identity) ([]model.PendingRequest, error) {
	f.lastMe = me
	return f.pending, f.err
}

func (f *fakeContacts) ListContacts(_ context.Context, me model.Identity) ([]string, error) {
	f.lastMe = me
	return f.contacts, f.err
}

type fakeMessages struct {
	err       error
	lastSince int64
	lastPeer  string
	sent      []model.Message
	views     []model.MessageView
}

var _ service.MessageService = (*fakeMessages)(nil)

func (f *fakeMessages) Send(
	_ context.Context, me model.Identity, to string, sb, rb model.EncryptedBlob,
) (*model.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if sb == "" || rb == "" {
		return nil, errs.ErrInvalidPayload
	}
	m := model.Message{ID: int64(len(f.sent) + 1), SenderID: me.UserID, SenderBlob: sb, RecipientBlob: rb, Timestamp: time.Now()}
	f.sent = append(f.sent, m)
	f.lastPeer = to
	return &m, nil
}

func (f *fakeMessages) Fetch(_ context.Context, _ model.Identity, peer string, since int64) ([]model.MessageView, error) {
	f.lastPeer, f.lastSince = peer, since
	return f.views, f.err
}
