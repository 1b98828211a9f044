package accounts

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrorAlreadyExists when the email is taken.
	Create(ctx context.Context, a *models.Account) error
	Get(ctx context.Context, uid string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}
