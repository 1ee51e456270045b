package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/limiter"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// memStore is an in-memory store honoring the same constraints as the schema.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*model.User
	keys     map[uuid.UUID]string
	requests []model.ChatRequest
	messages []model.Message
	nextReq  int64
	nextMsg  int64

	getErr error
}

var (
	_ repository.UserRepository    = (*memStore)(nil)
	_ repository.KeyRepository     = keyRepo{}
	_ repository.ChatRepository    = (*memStore)(nil)
	_ repository.MessageRepository = (*memStore)(nil)
	_ repository.AdminRepository   = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]*model.User{}, keys: map[uuid.UUID]string{}}
}

func (m *memStore) byName(name string) (*model.User, bool) {
	for _, u := range m.users {
		if u.Username == name {
			return u, true
		}
	}
	return nil, false
}

func (m *memStore) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName(u.Username); ok {
		return errs.ErrDuplicateUsername
	}
	c := *u
	c.CreatedAt = time.Now()
	m.users[u.ID] = &c
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byName(username)
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memStore) Upsert(_ context.Context, userID uuid.UUID, publicKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return errs.ErrNotFound
	}
	m.keys[userID] = publicKey
	return nil
}

func (m *memStore) keyByUsername(username string) (string, error) {
	u, ok := m.byName(username)
	if !ok {
		return "", errs.ErrNotFound
	}
	k, ok := m.keys[u.ID]
	if !ok {
		return "", errs.ErrNotFound
	}
	return k, nil
}

// keyRepo exposes the key side of memStore; GetByUsername collides with UserRepository.
type keyRepo struct{ *memStore }

func (k keyRepo) GetByUsername(_ context.Context, username string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keyByUsername(username)
}

func (m *memStore) CreateRequest(_ context.Context, requesterID uuid.UUID, requestedUsername string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.byName(requestedUsername)
	if !ok {
		return errs.ErrNotFound
	}
	if target.ID == requesterID {
		return errs.Validation("cannot send chat request to yourself")
	}
	for _, r := range m.requests {
		if r.RequesterID == requesterID && r.RequestedID == target.ID {
			return errs.ErrDuplicateRequest
		}
	}
	m.nextReq++
	m.requests = append(m.requests, model.ChatRequest{
		ID: m.nextReq, RequesterID: requesterID, RequestedID: target.ID, Status: model.StatusPending,
	})
	return nil
}

func (m *memStore) Accept(_ context.Context, accepterID uuid.UUID, requesterUsername string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	requester, ok := m.byName(requesterUsername)
	if !ok {
		return errs.ErrNotFound
	}
	for i := range m.requests {
		r := &m.requests[i]
		if r.RequesterID == requester.ID && r.RequestedID == accepterID && r.Status == model.StatusPending {
			r.Status = model.StatusAccepted
			return nil
		}
	}
	return errs.ErrNoPendingRequest
}

func (m *memStore) ListPending(_ context.Context, userID uuid.UUID) ([]model.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PendingRequest{}
	for _, r := range m.requests {
		if r.RequestedID == userID && r.Status == model.StatusPending {
			out = append(out, model.PendingRequest{RequesterUsername: m.users[r.RequesterID].Username, Status: r.Status})
		}
	}
	return out, nil
}

func (m *memStore) ListContacts(_ context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := map[string]struct{}{}
	for _, r := range m.requests {
		if r.Status != model.StatusAccepted {
			continue
		}
		switch userID {
		case r.RequesterID:
			set[m.users[r.RequestedID].Username] = struct{}{}
		case r.RequestedID:
			set[m.users[r.RequesterID].Username] = struct{}{}
		}
	}
	out := []string{}
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) Append(
	_ context.Context, senderID uuid.UUID, recipientUsername string, senderBlob, recipientBlob model.EncryptedBlob,
) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	to, ok := m.byName(recipientUsername)
	if !ok {
		return nil, errs.ErrNotFound
	}
	m.nextMsg++
	msg := model.Message{
		ID: m.nextMsg, SenderID: senderID, RecipientID: to.ID,
		SenderBlob: senderBlob, RecipientBlob: recipientBlob, Timestamp: time.Now(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *memStore) Since(_ context.Context, myID uuid.UUID, partnerUsername string, sinceID int64) ([]model.MessageView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byName(partnerUsername)
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := []model.MessageView{}
	for _, msg := range m.messages {
		pair := (msg.SenderID == myID && msg.RecipientID == p.ID) || (msg.SenderID == p.ID && msg.RecipientID == myID)
		if !pair || msg.ID <= sinceID {
			continue
		}
		v := model.MessageView{
			ID: msg.ID, SenderID: msg.SenderID, RecipientID: msg.RecipientID, Timestamp: msg.Timestamp,
			SenderUsername: m.users[msg.SenderID].Username, EncryptedBlob: msg.RecipientBlob,
		}
		if msg.SenderID == myID {
			v.EncryptedBlob = msg.SenderBlob
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memStore) ListUsers(context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		out = append(out, model.User{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt})
	}
	return out, nil
}

func (m *memStore) ListPublicKeys(context.Context) ([]model.PublicKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.PublicKey{}
	for id, k := range m.keys {
		out = append(out, model.PublicKey{UserID: id, PublicKey: k})
	}
	return out, nil
}

func (m *memStore) ListMessages(context.Context) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Message{}, m.messages...), nil
}

func (m *memStore) ListChatRequests(context.Context) ([]model.ChatRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChatRequest{}, m.requests...), nil
}

func (m *memStore) count(id uuid.UUID) model.CascadeResult {
	var res model.CascadeResult
	if _, ok := m.keys[id]; ok {
		res.PublicKeys = 1
	}
	for _, msg := range m.messages {
		if msg.SenderID == id || msg.RecipientID == id {
			res.Messages++
		}
	}
	for _, r := range m.requests {
		if r.RequesterID == id || r.RequestedID == id {
			res.ChatRequests++
		}
	}
	if _, ok := m.users[id]; ok {
		res.Users = 1
	}
	return res
}

func (m *memStore) CountReferences(_ context.Context, id uuid.UUID) (model.CascadeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return model.CascadeResult{}, errs.ErrNotFound
	}
	return m.count(id), nil
}

func (m *memStore) DeleteUserCascade(_ context.Context, id uuid.UUID) (model.CascadeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return model.CascadeResult{}, errs.ErrNotFound
	}
	res := m.count(id)
	delete(m.keys, id)
	msgs := m.messages[:0]
	for _, msg := range m.messages {
		if msg.SenderID != id && msg.RecipientID != id {
			msgs = append(msgs, msg)
		}
	}
	m.messages = msgs
	reqs := m.requests[:0]
	for _, r := range m.requests {
		if r.RequesterID != id && r.RequestedID != id {
			reqs = append(reqs, r)
		}
	}
	m.requests = reqs
	delete(m.users, id)
	return res, nil
}

type fakeLimiter struct {
	wait     time.Duration
	allowErr error

	blockFor time.Duration
	failErr  error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, limiter.Key) (time.Duration, error) {
	l.allowCalls++
	return l.wait, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, limiter.Key) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, limiter.Key) (time.Duration, error) {
	l.failureCalls++
	return l.blockFor, l.failErr
}
