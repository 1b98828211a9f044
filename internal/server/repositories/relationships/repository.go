package relationships

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, treeUID string) ([]*models.Relationship, error)
	// Touching lists relationships with personID at either end.
	Touching(ctx context.Context, treeUID, personID string) ([]*models.Relationship, error)
	Create(ctx context.Context, treeUID string, r *models.Relationship) (string, error)
	Update(ctx context.Context, treeUID, id string, patch models.RelationshipPatch) error
	Delete(ctx context.Context, treeUID, id string) error
}
