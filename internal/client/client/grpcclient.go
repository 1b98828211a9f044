package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/dmitrijs2005/famtree/internal/api"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/render"
	"github.com/dmitrijs2005/famtree/internal/server/view"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	conn *grpc.ClientConn

	mu          sync.RWMutex
	accessToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetToken sets the access token sent with every following call.
func (c *GRPCClient) SetToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *GRPCClient) accessTokenInterceptor(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	return invoker(withAccessToken(ctx, c.token()), method, req, reply, cc, opts...)
}

func (c *GRPCClient) accessTokenStreamInterceptor(ctx context.Context, desc *grpc.StreamDesc,
	cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, c.token()), desc, cc, method, opts...)
}

// NewGRPCClient connects to endpoint. Extra dial options are appended, e.g.
// a context dialer in tests.
func NewGRPCClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.accessTokenStreamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// call sends req to method and decodes the reply into resp when non-nil.
func (c *GRPCClient) call(ctx context.Context, method string, req, resp any) error {
	in, err := api.ToStruct(req)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, api.FullMethod(method), in, out); err != nil {
		return mapError(err)
	}
	if resp == nil {
		return nil
	}
	return api.FromStruct(out, resp)
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	return c.call(ctx, api.MethodPing, api.Empty{}, nil)
}

func (c *GRPCClient) Register(ctx context.Context, email, password, displayName string) (*api.SessionResponse, error) {
	var s api.SessionResponse
	req := api.CredentialsRequest{Email: email, Password: password, DisplayName: displayName}
	if err := c.call(ctx, api.MethodRegister, req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *GRPCClient) SignIn(ctx context.Context, email, password string) (*api.SessionResponse, error) {
	var s api.SessionResponse
	if err := c.call(ctx, api.MethodSignIn, api.CredentialsRequest{Email: email, Password: password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *GRPCClient) SignOut(ctx context.Context) error {
	return c.call(ctx, api.MethodSignOut, api.Empty{}, nil)
}

func (c *GRPCClient) GetProfile(ctx context.Context) (*models.Profile, error) {
	var p models.Profile
	if err := c.call(ctx, api.MethodGetProfile, api.Empty{}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *GRPCClient) UpdateProfile(ctx context.Context, patch models.ProfilePatch) error {
	return c.call(ctx, api.MethodUpdateProfile, patch, nil)
}

func (c *GRPCClient) SetActiveTree(ctx context.Context, treeUID string) error {
	return c.call(ctx, api.MethodSetActiveTree, api.TreeRequest{TreeUID: treeUID}, nil)
}

func (c *GRPCClient) ListAccessibleTrees(ctx context.Context) ([]*models.SharedTree, error) {
	var r api.TreesResponse
	err := c.call(ctx, api.MethodListAccessibleTrees, api.Empty{}, &r)
	return r.Trees, err
}

func (c *GRPCClient) RemoveSharedTree(ctx context.Context, ownerUID string) error {
	return c.call(ctx, api.MethodRemoveSharedTree, api.TreeRequest{TreeUID: ownerUID}, nil)
}

func (c *GRPCClient) SendInvitation(ctx context.Context, email string, personID *string) (string, error) {
	var r api.IDResponse
	err := c.call(ctx, api.MethodSendInvitation, api.InvitationRequest{Email: email, PersonIDInTree: personID}, &r)
	return r.ID, err
}

func (c *GRPCClient) ListPendingInvitations(ctx context.Context) ([]*models.Invitation, error) {
	var r api.InvitationsResponse
	err := c.call(ctx, api.MethodListPendingInvitations, api.Empty{}, &r)
	return r.Invitations, err
}

func (c *GRPCClient) AcceptInvitation(ctx context.Context, id string) error {
	return c.call(ctx, api.MethodAcceptInvitation, api.IDRequest{ID: id}, nil)
}

func (c *GRPCClient) DeclineInvitation(ctx context.Context, id string) error {
	return c.call(ctx, api.MethodDeclineInvitation, api.IDRequest{ID: id}, nil)
}

func (c *GRPCClient) ListPeople(ctx context.Context) ([]*models.Person, error) {
	var r api.PeopleResponse
	err := c.call(ctx, api.MethodListPeople, api.Empty{}, &r)
	return r.People, err
}

func (c *GRPCClient) ListRelationships(ctx context.Context) ([]*models.Relationship, error) {
	var r api.RelationshipsResponse
	err := c.call(ctx, api.MethodListRelationships, api.Empty{}, &r)
	return r.Relationships, err
}

// Dispatch sends a renderer intent. Adds return the new id.
func (c *GRPCClient) Dispatch(ctx context.Context, in render.Intent) (string, error) {
	var r api.IDResponse
	err := c.call(ctx, api.MethodDispatchIntent, in, &r)
	return r.ID, err
}

func (c *GRPCClient) PortraitUploadURL(ctx context.Context, personID string) (string, string, error) {
	var r api.PortraitResponse
	err := c.call(ctx, api.MethodGetPortraitUploadURL, api.PortraitRequest{PersonID: personID}, &r)
	return r.Key, r.URL, err
}

func (c *GRPCClient) PortraitURL(ctx context.Context, personID string) (string, error) {
	var r api.PortraitResponse
	err := c.call(ctx, api.MethodGetPortraitURL, api.PortraitRequest{PersonID: personID}, &r)
	return r.URL, err
}

// WatchView calls fn with every view snapshot until ctx is cancelled or the
// stream fails. A cancelled ctx returns nil.
func (c *GRPCClient) WatchView(ctx context.Context, fn func(view.Snapshot)) error {
	desc := &grpc.StreamDesc{StreamName: api.MethodWatchView, ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, api.FullMethod(api.MethodWatchView))
	if err != nil {
		return mapError(err)
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		return mapError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return mapError(err)
	}

	for {
		msg := &structpb.Struct{}
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return mapError(err)
		}
		var snap view.Snapshot
		if err := api.FromStruct(msg, &snap); err != nil {
			return err
		}
		fn(snap)
	}
}
