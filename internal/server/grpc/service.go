package grpc

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// publicMethods are callable without an access token.
var publicMethods = map[string]bool{
	api.FullMethod(api.MethodRegister): true,
	api.FullMethod(api.MethodSignIn):   true,
	api.FullMethod(api.MethodPing):     true,
}

type unaryFunc func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// FamilyTreeServer is implemented by GRPCServer.
type FamilyTreeServer interface {
	Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	WatchView(in *structpb.Struct, stream grpc.ServerStream) error
}

func unaryMethod(name string, fn unaryFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(ctx, req.(*structpb.Struct))
			})
		},
	}
}

// serviceDesc describes the service with handlers bound to s.
func (s *GRPCServer) serviceDesc() *grpc.ServiceDesc {
	unary := map[string]unaryFunc{
		api.MethodRegister:               s.Register,
		api.MethodSignIn:                 s.SignIn,
		api.MethodSignOut:                s.SignOut,
		api.MethodGetProfile:             s.GetProfile,
		api.MethodUpdateProfile:          s.UpdateProfile,
		api.MethodSetActiveTree:          s.SetActiveTree,
		api.MethodListAccessibleTrees:    s.ListAccessibleTrees,
		api.MethodRemoveSharedTree:       s.RemoveSharedTree,
		api.MethodSendInvitation:         s.SendInvitation,
		api.MethodListPendingInvitations: s.ListPendingInvitations,
		api.MethodAcceptInvitation:       s.AcceptInvitation,
		api.MethodDeclineInvitation:      s.DeclineInvitation,
		api.MethodListPeople:             s.ListPeople,
		api.MethodListRelationships:      s.ListRelationships,
		api.MethodAddPerson:              s.AddPerson,
		api.MethodUpdatePerson:           s.UpdatePerson,
		api.MethodDeletePerson:           s.DeletePerson,
		api.MethodAddRelationship:        s.AddRelationship,
		api.MethodUpdateRelationship:     s.UpdateRelationship,
		api.MethodDeleteRelationship:     s.DeleteRelationship,
		api.MethodDispatchIntent:         s.DispatchIntent,
		api.MethodGetPortraitUploadURL:   s.GetPortraitUploadURL,
		api.MethodGetPortraitURL:         s.GetPortraitURL,
		api.MethodPing:                   s.Ping,
	}

	desc := &grpc.ServiceDesc{
		ServiceName: api.ServiceName,
		HandlerType: (*FamilyTreeServer)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    api.MethodWatchView,
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(structpb.Struct)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(FamilyTreeServer).WatchView(in, stream)
			},
		}},
		Metadata: "famtree/v1/famtree.proto",
	}
	for name, fn := range unary {
		desc.Methods = append(desc.Methods, unaryMethod(name, fn))
	}
	return desc
}
