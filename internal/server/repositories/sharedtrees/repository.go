package sharedtrees

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, viewerUID string) ([]*models.SharedTree, error)
	Get(ctx context.Context, viewerUID, ownerUID string) (*models.SharedTree, error)
	Put(ctx context.Context, viewerUID string, t *models.SharedTree) error
	Delete(ctx context.Context, viewerUID, ownerUID string) error
}
