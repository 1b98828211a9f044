package grpc

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/api"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/render"
	"github.com/dmitrijs2005/famtree/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

var empty = api.Empty{}

// respond encodes v, or maps err to a status.
func respond(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := api.ToStruct(v)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func decode[T any](in *structpb.Struct) (T, error) {
	var v T
	err := api.FromStruct(in, &v)
	return v, err
}

func sessionResponse(s *services.Session, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(api.SessionResponse{AccessToken: s.AccessToken, ExpiresAt: s.ExpiresAt, Identity: s.Identity}, nil)
}

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.CredentialsRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info(ctx, "Registration request")
	return sessionResponse(s.svc.Identity.Register(ctx, req.Email, req.Password, req.DisplayName))
}

func (s *GRPCServer) SignIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.CredentialsRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return sessionResponse(s.svc.Identity.SignIn(ctx, req.Email, req.Password))
}

func (s *GRPCServer) SignOut(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return respond(empty, s.svc.Identity.SignOut(ctx, tokenFrom(ctx)))
}

func (s *GRPCServer) GetProfile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return respond(s.svc.Profiles.EnsureProfile(ctx, IdentityFrom(ctx)))
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	patch, err := decode[models.ProfilePatch](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Profiles.UpdateProfile(ctx, IdentityFrom(ctx), patch))
}

func (s *GRPCServer) SetActiveTree(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.TreeRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Profiles.SetActiveTree(ctx, IdentityFrom(ctx), req.TreeUID))
}

func (s *GRPCServer) ListAccessibleTrees(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	trees, err := s.svc.Access.ListAccessibleTrees(ctx, IdentityFrom(ctx))
	return respond(api.TreesResponse{Trees: trees}, err)
}

func (s *GRPCServer) RemoveSharedTree(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.TreeRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Access.RemoveSharedTree(ctx, IdentityFrom(ctx), req.TreeUID))
}

func (s *GRPCServer) SendInvitation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.InvitationRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := s.svc.Invitations.Send(ctx, IdentityFrom(ctx), req.Email, req.PersonIDInTree)
	return respond(api.IDResponse{ID: id}, err)
}

func (s *GRPCServer) ListPendingInvitations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.svc.Invitations.ListPending(ctx, IdentityFrom(ctx))
	return respond(api.InvitationsResponse{Invitations: list}, err)
}

func (s *GRPCServer) AcceptInvitation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.IDRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Invitations.Accept(ctx, IdentityFrom(ctx), req.ID))
}

func (s *GRPCServer) DeclineInvitation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.IDRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Invitations.Decline(ctx, IdentityFrom(ctx), req.ID))
}

func (s *GRPCServer) ListPeople(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	people, err := s.svc.Graph.ListPeople(ctx, IdentityFrom(ctx))
	return respond(api.PeopleResponse{People: people}, err)
}

func (s *GRPCServer) ListRelationships(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	rels, err := s.svc.Graph.ListRelationships(ctx, IdentityFrom(ctx))
	return respond(api.RelationshipsResponse{Relationships: rels}, err)
}

func (s *GRPCServer) AddPerson(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := decode[models.Person](in)
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := s.svc.Graph.AddPerson(ctx, IdentityFrom(ctx), p)
	return respond(api.IDResponse{ID: id}, err)
}

func (s *GRPCServer) UpdatePerson(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.PersonPatchRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Graph.UpdatePerson(ctx, IdentityFrom(ctx), req.ID, req.Patch))
}

func (s *GRPCServer) DeletePerson(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.IDRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Graph.DeletePerson(ctx, IdentityFrom(ctx), req.ID))
}

func (s *GRPCServer) AddRelationship(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r, err := decode[models.Relationship](in)
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := s.svc.Graph.AddRelationship(ctx, IdentityFrom(ctx), r)
	return respond(api.IDResponse{ID: id}, err)
}

func (s *GRPCServer) UpdateRelationship(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.RelationshipPatchRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Graph.UpdateRelationship(ctx, IdentityFrom(ctx), req.ID, req.Patch))
}

func (s *GRPCServer) DeleteRelationship(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.IDRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(empty, s.svc.Graph.DeleteRelationship(ctx, IdentityFrom(ctx), req.ID))
}

func (s *GRPCServer) DispatchIntent(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	intent, err := decode[render.Intent](in)
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := render.Dispatch(ctx, s.svc.Graph, IdentityFrom(ctx), intent)
	return respond(api.IDResponse{ID: id}, err)
}

func (s *GRPCServer) GetPortraitUploadURL(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.PortraitRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	key, url, err := s.svc.Portraits.UploadURL(ctx, IdentityFrom(ctx), req.PersonID)
	return respond(api.PortraitResponse{Key: key, URL: url}, err)
}

func (s *GRPCServer) GetPortraitURL(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decode[api.PortraitRequest](in)
	if err != nil {
		return nil, toStatus(err)
	}
	url, err := s.svc.Portraits.DownloadURL(ctx, IdentityFrom(ctx), req.PersonID)
	return respond(api.PortraitResponse{URL: url}, err)
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return respond(api.StatusResponse{Status: "OK"}, nil)
}
