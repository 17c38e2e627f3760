package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"user-auth-service/pkg/logger"
)

const (
	// TokenServiceName is the fully qualified gRPC service name.
	TokenServiceName = "userauth.v1.TokenService"

	// ValidateTokenMethod is the full method name used by interceptors.
	ValidateTokenMethod = "/" + TokenServiceName + "/ValidateToken"
)

// TokenValidator checks an access token and returns its subject.
type TokenValidator interface {
	Validate(token string) (string, bool)
}

// TokenServiceServer is the server API for the token service. Messages are the
// protobuf well-known StringValue wrappers, so no generated code is needed.
type TokenServiceServer interface {
	ValidateToken(ctx context.Context, token *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// TokenServiceDesc describes the token service for grpc.Server.RegisterService.
var TokenServiceDesc = grpc.ServiceDesc{
	ServiceName: TokenServiceName,
	HandlerType: (*TokenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ValidateToken",
			Handler:    validateTokenHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "userauth/v1/token.proto",
}

// RegisterTokenServiceServer registers srv on s.
func RegisterTokenServiceServer(s grpc.ServiceRegistrar, srv TokenServiceServer) {
	s.RegisterService(&TokenServiceDesc, srv)
}

func validateTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).ValidateToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ValidateTokenMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenServiceServer).ValidateToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// TokenServer lets internal services resolve bearer tokens without sharing the secret.
type TokenServer struct {
	tokens TokenValidator
	log    *zap.Logger
}

// NewTokenServer creates a new gRPC token service server.
func NewTokenServer(tokens TokenValidator, log *zap.Logger) *TokenServer {
	return &TokenServer{tokens: tokens, log: log}
}

// ValidateToken returns the token subject, or codes.Unauthenticated.
func (s *TokenServer) ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	subject, ok := s.tokens.Validate(req.GetValue())
	if !ok {
		logger.WithContext(ctx, s.log).Info("grpc token rejected")
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return wrapperspb.String(subject), nil
}

// TokenServiceClient calls the token service.
type TokenServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTokenServiceClient creates a client over cc.
func NewTokenServiceClient(cc grpc.ClientConnInterface) *TokenServiceClient {
	return &TokenServiceClient{cc: cc}
}

// ValidateToken returns the subject of token.
func (c *TokenServiceClient) ValidateToken(ctx context.Context, token string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, ValidateTokenMethod, wrapperspb.String(token), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
