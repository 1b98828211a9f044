package grpc

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	identityKey ctxKey = "identity"
	tokenKey    ctxKey = "accessToken"
)

// Authenticator resolves access tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
}

// IdentityFrom returns the identity the interceptor attached to ctx.
func IdentityFrom(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(identityKey).(*models.Identity)
	return id
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

func accessToken(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// authenticate attaches the caller's identity to ctx unless method is public.
func (s *GRPCServer) authenticate(ctx context.Context, method string) (context.Context, error) {
	if publicMethods[method] {
		return ctx, nil
	}

	token := accessToken(ctx)
	if len(token) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "method", method, "error", err)
		return nil, toStatus(err)
	}

	ctx = context.WithValue(ctx, identityKey, id)
	ctx = context.WithValue(ctx, tokenKey, token)
	return ctx, nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authenticatedStream) Context() context.Context { return a.ctx }

func (s *GRPCServer) accessTokenStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authenticatedStream{ServerStream: ss, ctx: ctx})
}
