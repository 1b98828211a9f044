package invitations

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Invitation, error)
	Create(ctx context.Context, inv *models.Invitation) (string, error)
	FindPending(ctx context.Context, ownerUID, invitedEmail string) ([]*models.Invitation, error)
	// Transition moves a pending invitation to status; it fails with
	// common.ErrPreconditionFailed when the invitation is no longer pending.
	Transition(ctx context.Context, id string, status models.InvitationStatus) error
}
