package people

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, treeUID, id string) (*models.Person, error)
	List(ctx context.Context, treeUID string) ([]*models.Person, error)
	Create(ctx context.Context, treeUID string, p *models.Person) (string, error)
	Update(ctx context.Context, treeUID, id string, patch models.PersonPatch) error
	SetPortrait(ctx context.Context, treeUID, id, key string) error
	Delete(ctx context.Context, treeUID, id string) error
}
