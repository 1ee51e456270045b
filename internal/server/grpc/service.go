package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/and161185/cryptachat/internal/api"
)

// ServiceName is the fully qualified relay service name.
const ServiceName = "cryptachat.v1.Relay"

const (
	MethodRegister        = "/" + ServiceName + "/Register"
	MethodLogin           = "/" + ServiceName + "/Login"
	MethodUploadKey       = "/" + ServiceName + "/UploadKey"
	MethodGetKey          = "/" + ServiceName + "/GetKey"
	MethodRequestChat     = "/" + ServiceName + "/RequestChat"
	MethodGetChatRequests = "/" + ServiceName + "/GetChatRequests"
	MethodAcceptChat      = "/" + ServiceName + "/AcceptChat"
	MethodGetContacts     = "/" + ServiceName + "/GetContacts"
	MethodSendMessage     = "/" + ServiceName + "/SendMessage"
	MethodGetMessages     = "/" + ServiceName + "/GetMessages"
)

// PublicMethods do not require a session token.
var PublicMethods = map[string]bool{
	MethodRegister: true,
	MethodLogin:    true,
}

// RelayServer is the server API of the relay service.
type RelayServer interface {
	Register(context.Context, *api.Credentials) (*api.RegisterResponse, error)
	Login(context.Context, *api.Credentials) (*api.LoginResponse, error)
	UploadKey(context.Context, *api.UploadKeyRequest) (*api.Status, error)
	GetKey(context.Context, *api.GetKeyRequest) (*api.KeyResponse, error)
	RequestChat(context.Context, *api.ChatRequestRequest) (*api.Status, error)
	GetChatRequests(context.Context, *api.Empty) (*api.PendingRequestsResponse, error)
	AcceptChat(context.Context, *api.AcceptChatRequest) (*api.Status, error)
	GetContacts(context.Context, *api.Empty) (*api.ContactsResponse, error)
	SendMessage(context.Context, *api.SendMessageRequest) (*api.SendMessageResponse, error)
	GetMessages(context.Context, *api.GetMessagesRequest) (*api.MessagesResponse, error)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(RelayServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RelayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RelayServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RelayServiceDesc describes the relay service for grpc.Server.RegisterService.
var RelayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, RelayServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, RelayServer.Login)},
		{MethodName: "UploadKey", Handler: unaryHandler(MethodUploadKey, RelayServer.UploadKey)},
		{MethodName: "GetKey", Handler: unaryHandler(MethodGetKey, RelayServer.GetKey)},
		{MethodName: "RequestChat", Handler: unaryHandler(MethodRequestChat, RelayServer.RequestChat)},
		{MethodName: "GetChatRequests", Handler: unaryHandler(MethodGetChatRequests, RelayServer.GetChatRequests)},
		{MethodName: "AcceptChat", Handler: unaryHandler(MethodAcceptChat, RelayServer.AcceptChat)},
		{MethodName: "GetContacts", Handler: unaryHandler(MethodGetContacts, RelayServer.GetContacts)},
		{MethodName: "SendMessage", Handler: unaryHandler(MethodSendMessage, RelayServer.SendMessage)},
		{MethodName: "GetMessages", Handler: unaryHandler(MethodGetMessages, RelayServer.GetMessages)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cryptachat/v1/relay",
}

// RegisterRelayServer registers srv on s.
func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&RelayServiceDesc, srv)
}
