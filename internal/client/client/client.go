package client

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/api"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/render"
	"github.com/dmitrijs2005/famtree/internal/server/view"
)

// Client is the CLI's view of the famtree service.
type Client interface {
	Close() error
	SetToken(token string)
	Ping(ctx context.Context) error

	Register(ctx context.Context, email, password, displayName string) (*api.SessionResponse, error)
	SignIn(ctx context.Context, email, password string) (*api.SessionResponse, error)
	SignOut(ctx context.Context) error
	GetProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, patch models.ProfilePatch) error

	SetActiveTree(ctx context.Context, treeUID string) error
	ListAccessibleTrees(ctx context.Context) ([]*models.SharedTree, error)
	RemoveSharedTree(ctx context.Context, ownerUID string) error

	SendInvitation(ctx context.Context, email string, personID *string) (string, error)
	ListPendingInvitations(ctx context.Context) ([]*models.Invitation, error)
	AcceptInvitation(ctx context.Context, id string) error
	DeclineInvitation(ctx context.Context, id string) error

	ListPeople(ctx context.Context) ([]*models.Person, error)
	ListRelationships(ctx context.Context) ([]*models.Relationship, error)
	Dispatch(ctx context.Context, in render.Intent) (string, error)

	PortraitUploadURL(ctx context.Context, personID string) (key, url string, err error)
	PortraitURL(ctx context.Context, personID string) (string, error)

	WatchView(ctx context.Context, fn func(view.Snapshot)) error
}
