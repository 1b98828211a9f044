package invitations

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

const Collection = "invitations"

func Path(id string) string {
	return docstore.Join(Collection, id)
}

// PendingFor selects the pending invitations addressed to email.
func PendingFor(email string) docstore.Query {
	return docstore.Collection(Collection).
		Where("invitedEmail", models.NormalizeEmail(email)).
		Where("status", string(models.InvitationPending))
}

func Decode(d *docstore.Document) (*models.Invitation, error) {
	inv := &models.Invitation{}
	if err := d.DataTo(inv); err != nil {
		return nil, err
	}
	inv.ID = d.ID
	return inv, nil
}

func DecodeAll(docs []*docstore.Document) ([]*models.Invitation, error) {
	out := make([]*models.Invitation, 0, len(docs))
	for _, d := range docs {
		inv, err := Decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

type DocRepository struct {
	db docstore.Accessor
}

func NewDocRepository(db docstore.Accessor) *DocRepository {
	return &DocRepository{db: db}
}

func (r *DocRepository) Get(ctx context.Context, id string) (*models.Invitation, error) {
	d, err := r.db.Get(ctx, Path(id))
	if err != nil {
		return nil, err
	}
	return Decode(d)
}

// Create stores inv as pending with a server-assigned creation time.
func (r *DocRepository) Create(ctx context.Context, inv *models.Invitation) (string, error) {
	id := docstore.NewID()
	err := r.db.Create(ctx, Path(id), map[string]any{
		"ownerUid":       inv.OwnerUID,
		"ownerEmail":     inv.OwnerEmail,
		"invitedEmail":   models.NormalizeEmail(inv.InvitedEmail),
		"personIdInTree": inv.PersonIDInTree,
		"status":         models.InvitationPending,
		"createdAt":      docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create invitation: %w", err)
	}
	return id, nil
}

func (r *DocRepository) FindPending(ctx context.Context, ownerUID, invitedEmail string) ([]*models.Invitation, error) {
	docs, err := r.db.Query(ctx, PendingFor(invitedEmail).Where("ownerUid", ownerUID))
	if err != nil {
		return nil, err
	}
	return DecodeAll(docs)
}

func (r *DocRepository) Transition(ctx context.Context, id string, status models.InvitationStatus) error {
	if err := r.db.Require(ctx, Path(id), "status", string(models.InvitationPending)); err != nil {
		return err
	}
	if err := r.db.Update(ctx, Path(id), map[string]any{"status": status}); err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	return nil
}
