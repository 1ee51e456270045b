package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/and161185/cryptachat/internal/api"
)

// RelayClient is the client API of the relay service.
type RelayClient struct {
	cc grpc.ClientConnInterface
}

// NewRelayClient wraps cc. Calls are sent with the JSON content-subtype.
func NewRelayClient(cc grpc.ClientConnInterface) *RelayClient { return &RelayClient{cc: cc} }

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RelayClient) Register(ctx context.Context, in *api.Credentials, opts ...grpc.CallOption) (*api.RegisterResponse, error) {
	return invoke[api.RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *RelayClient) Login(ctx context.Context, in *api.Credentials, opts ...grpc.CallOption) (*api.LoginResponse, error) {
	return invoke[api.LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *RelayClient) UploadKey(ctx context.Context, in *api.UploadKeyRequest, opts ...grpc.CallOption) (*api.Status, error) {
	return invoke[api.Status](ctx, c.cc, MethodUploadKey, in, opts)
}

func (c *RelayClient) GetKey(ctx context.Context, in *api.GetKeyRequest, opts ...grpc.CallOption) (*api.KeyResponse, error) {
	return invoke[api.KeyResponse](ctx, c.cc, MethodGetKey, in, opts)
}

func (c *RelayClient) RequestChat(ctx context.Context, in *api.ChatRequestRequest, opts ...grpc.CallOption) (*api.Status, error) {
	return invoke[api.Status](ctx, c.cc, MethodRequestChat, in, opts)
}

func (c *RelayClient) GetChatRequests(ctx context.Context, opts ...grpc.CallOption) (*api.PendingRequestsResponse, error) {
	return invoke[api.PendingRequestsResponse](ctx, c.cc, MethodGetChatRequests, &api.Empty{}, opts)
}

func (c *RelayClient) AcceptChat(ctx context.Context, in *api.AcceptChatRequest, opts ...grpc.CallOption) (*api.Status, error) {
	return invoke[api.Status](ctx, c.cc, MethodAcceptChat, in, opts)
}

func (c *RelayClient) GetContacts(ctx context.Context, opts ...grpc.CallOption) (*api.ContactsResponse, error) {
	return invoke[api.ContactsResponse](ctx, c.cc, MethodGetContacts, &api.Empty{}, opts)
}

func (c *RelayClient) SendMessage(ctx context.Context, in *api.SendMessageRequest, opts ...grpc.CallOption) (*api.SendMessageResponse, error) {
	return invoke[api.SendMessageResponse](ctx, c.cc, MethodSendMessage, in, opts)
}

func (c *RelayClient) GetMessages(ctx context.Context, in *api.GetMessagesRequest, opts ...grpc.CallOption) (*api.MessagesResponse, error) {
	return invoke[api.MessagesResponse](ctx, c.cc, MethodGetMessages, in, opts)
}
