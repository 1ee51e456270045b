// Package grpcserver exposes the relay operations over gRPC.
package grpcserver

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/cryptachat/internal/api"
	"github.com/and161185/cryptachat/internal/convert"
	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
	"github.com/and161185/cryptachat/internal/service"
)

// Server wires services into gRPC handlers. Authentication happens in
// AuthUnary; handlers read the caller from context.
type Server struct {
	auth     service.AuthService
	keys     service.KeyService
	contacts service.ContactService
	messages service.MessageService
}

var _ RelayServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, keys service.KeyService, contacts service.ContactService, messages service.MessageService) *Server {
	return &Server{auth: auth, keys: keys, contacts: contacts, messages: messages}
}

// toStatus maps domain errors onto gRPC codes. Uncategorized errors are
// reported as Internal without detail.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch errs.Category(err) {
	case errs.ErrValidation:
		code = codes.InvalidArgument
	case errs.ErrAlreadyExists:
		code = codes.AlreadyExists
	case errs.ErrConflict:
		code = codes.FailedPrecondition
	case errs.ErrNotFound:
		code = codes.NotFound
	case errs.ErrUnauthorized:
		code = codes.Unauthenticated
	case errs.ErrRateLimited:
		code = codes.ResourceExhausted
	default:
		if errors.Is(err, context.Canceled) {
			return status.Error(codes.Canceled, "canceled")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, "deadline exceeded")
		}
		code = codes.Internal
	}
	return status.Error(code, errs.Detail(err))
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

func (s *Server) caller(ctx context.Context) (model.Identity, error) {
	id, ok := IdentityFromCtx(ctx)
	if !ok {
		return model.Identity{}, toStatus(errs.ErrTokenMissing)
	}
	return id, nil
}

// --- Auth ---

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, req *api.Credentials) (*api.RegisterResponse, error) {
	id, err := s.auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.RegisterResponse{Message: "New user registered successfully!", UserID: id.String()}, nil
}

// Login authenticates a user and returns a session token.
func (s *Server) Login(ctx context.Context, req *api.Credentials) (*api.LoginResponse, error) {
	tok, u, err := s.auth.LoginWithIP(ctx, req.Username, req.Password, remoteIP(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	resp := convert.ToAPILogin(tok, u)
	return &resp, nil
}

// --- Keys ---

func (s *Server) UploadKey(ctx context.Context, req *api.UploadKeyRequest) (*api.Status, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.keys.Upload(ctx, me, req.PublicKey); err != nil {
		return nil, toStatus(err)
	}
	return &api.Status{Message: "Public key uploaded successfully."}, nil
}

func (s *Server) GetKey(ctx context.Context, req *api.GetKeyRequest) (*api.KeyResponse, error) {
	if _, err := s.caller(ctx); err != nil {
		return nil, err
	}
	key, err := s.keys.Lookup(ctx, req.Username)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.KeyResponse{Username: req.Username, PublicKey: key}, nil
}

// --- Contacts ---

func (s *Server) RequestChat(ctx context.Context, req *api.ChatRequestRequest) (*api.Status, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.contacts.Request(ctx, me, req.RecipientUsername); err != nil {
		return nil, toStatus(err)
	}
	return &api.Status{Message: fmt.Sprintf("Chat request sent to %s.", req.RecipientUsername)}, nil
}

func (s *Server) GetChatRequests(ctx context.Context, _ *api.Empty) (*api.PendingRequestsResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.contacts.ListPending(ctx, me)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.PendingRequestsResponse{PendingRequests: convert.ToAPIPending(pending)}, nil
}

func (s *Server) AcceptChat(ctx context.Context, req *api.AcceptChatRequest) (*api.Status, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.contacts.Accept(ctx, me, req.RequesterUsername); err != nil {
		return nil, toStatus(err)
	}
	return &api.Status{Message: fmt.Sprintf("Chat request from %s accepted!", req.RequesterUsername)}, nil
}

func (s *Server) GetContacts(ctx context.Context, _ *api.Empty) (*api.ContactsResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := s.contacts.ListContacts(ctx, me)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ContactsResponse{Contacts: convert.ToAPIContacts(contacts)}, nil
}

// --- Messages ---

// SendMessage stores one envelope with a ciphertext per party.
func (s *Server) SendMessage(ctx context.Context, req *api.SendMessageRequest) (*api.SendMessageResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.messages.Send(ctx, me, req.RecipientUsername,
		model.EncryptedBlob(req.SenderBlob), model.EncryptedBlob(req.RecipientBlob))
	if err != nil {
		return nil, toStatus(err)
	}
	resp := convert.ToAPISent(m)
	return &resp, nil
}

// GetMessages returns the conversation with a partner after since_id.
func (s *Server) GetMessages(ctx context.Context, req *api.GetMessagesRequest) (*api.MessagesResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.messages.Fetch(ctx, me, req.Username, req.SinceID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.MessagesResponse{Messages: convert.ToAPIMessages(views)}, nil
}
