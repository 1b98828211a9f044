package profiles

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, uid string) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	SetActiveTree(ctx context.Context, uid, treeUID string) error
	Update(ctx context.Context, uid string, patch models.ProfilePatch) error
}
