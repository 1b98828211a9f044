package render

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

type IntentKind string

const (
	AddNode    IntentKind = "add-node"
	AddEdge    IntentKind = "add-edge"
	EditNode   IntentKind = "edit-node"
	EditEdge   IntentKind = "edit-edge"
	DeleteNode IntentKind = "delete-node"
	DeleteEdge IntentKind = "delete-edge"
)

// Intent is a user action raised by the renderer. ID names the node or edge
// for edits and deletes; the payload matching Kind carries the data.
type Intent struct {
	Kind              IntentKind                `json:"kind"`
	ID                string                    `json:"id,omitempty"`
	Person            *models.Person            `json:"person,omitempty"`
	PersonPatch       *models.PersonPatch       `json:"personPatch,omitempty"`
	Relationship      *models.Relationship      `json:"relationship,omitempty"`
	RelationshipPatch *models.RelationshipPatch `json:"relationshipPatch,omitempty"`
}

// Graph is the mutation side of the graph store.
type Graph interface {
	AddPerson(ctx context.Context, id *models.Identity, p models.Person) (string, error)
	UpdatePerson(ctx context.Context, id *models.Identity, personID string, patch models.PersonPatch) error
	DeletePerson(ctx context.Context, id *models.Identity, personID string) error
	AddRelationship(ctx context.Context, id *models.Identity, r models.Relationship) (string, error)
	UpdateRelationship(ctx context.Context, id *models.Identity, relID string, patch models.RelationshipPatch) error
	DeleteRelationship(ctx context.Context, id *models.Identity, relID string) error
}

// Dispatch applies in to g on behalf of id. For additions it returns the new
// node or edge id, otherwise the id the intent named. The renderer is not
// updated here; results arrive through the live graph.
func Dispatch(ctx context.Context, g Graph, id *models.Identity, in Intent) (string, error) {
	switch in.Kind {
	case AddNode:
		if in.Person == nil {
			return "", missing(in)
		}
		return g.AddPerson(ctx, id, *in.Person)
	case AddEdge:
		if in.Relationship == nil {
			return "", missing(in)
		}
		return g.AddRelationship(ctx, id, *in.Relationship)
	case EditNode:
		if in.ID == "" || in.PersonPatch == nil {
			return "", missing(in)
		}
		return in.ID, g.UpdatePerson(ctx, id, in.ID, *in.PersonPatch)
	case EditEdge:
		if in.ID == "" || in.RelationshipPatch == nil {
			return "", missing(in)
		}
		return in.ID, g.UpdateRelationship(ctx, id, in.ID, *in.RelationshipPatch)
	case DeleteNode:
		if in.ID == "" {
			return "", missing(in)
		}
		return in.ID, g.DeletePerson(ctx, id, in.ID)
	case DeleteEdge:
		if in.ID == "" {
			return "", missing(in)
		}
		return in.ID, g.DeleteRelationship(ctx, id, in.ID)
	}
	return "", fmt.Errorf("%w: unknown intent %q", common.ErrInvalidArgument, in.Kind)
}

func missing(in Intent) error {
	return fmt.Errorf("%w: %s intent is incomplete", common.ErrInvalidArgument, in.Kind)
}
