// Package grpc exposes the famtree core as the famtree.v1.FamilyTree gRPC
// service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/services"
	"github.com/dmitrijs2005/famtree/internal/server/view"
	"google.golang.org/grpc"
)

// Services bundles the core the server exposes.
type Services struct {
	Identity    *services.IdentityService
	Profiles    *services.ProfileService
	Access      *services.AccessService
	Invitations *services.InvitationService
	Graph       *services.GraphService
	Portraits   *services.PortraitService
	Composer    *view.Composer
	Sessions    *view.Registry
}

type GRPCServer struct {
	address string
	svc     Services
	auth    Authenticator
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, svc Services) *GRPCServer {
	return &GRPCServer{
		address: a,
		svc:     svc,
		auth:    svc.Identity,
		logger:  l.With("module", "grpc_server"),
	}
}

// NewServer builds a grpc.Server with the service and its interceptors
// registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(s.serviceDesc(), s)
	return srv
}

// Run serves on the configured address until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	if err := srv.Serve(l); err != nil {
		return err
	}
	return nil
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Info(ctx, "request failed", "method", info.FullMethod, "error", err)
	}
	return resp, err
}
