package accounts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

func Path(uid string) string {
	return docstore.Join("accounts", uid)
}

// EmailPath is the uniqueness index entry for a normalised email.
func EmailPath(email string) string {
	return docstore.Join("accountEmails", models.NormalizeEmail(email))
}

type DocRepository struct {
	db docstore.Accessor
}

func NewDocRepository(db docstore.Accessor) *DocRepository {
	return &DocRepository{db: db}
}

// Create writes the account and its email index entry. Bind the repository
// to a batch to make both writes atomic.
func (r *DocRepository) Create(ctx context.Context, a *models.Account) error {
	if err := r.db.Create(ctx, EmailPath(a.Email), map[string]any{"uid": a.UID}); err != nil {
		return fmt.Errorf("reserve email: %w", err)
	}
	err := r.db.Create(ctx, Path(a.UID), map[string]any{
		"uid":          a.UID,
		"email":        models.NormalizeEmail(a.Email),
		"displayName":  a.DisplayName,
		"passwordHash": a.PasswordHash,
		"createdAt":    docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *DocRepository) Get(ctx context.Context, uid string) (*models.Account, error) {
	d, err := r.db.Get(ctx, Path(uid))
	if err != nil {
		return nil, err
	}
	a := &models.Account{}
	if err := d.DataTo(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *DocRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	d, err := r.db.Get(ctx, EmailPath(email))
	if err != nil {
		return nil, err
	}
	var idx struct {
		UID string `json:"uid"`
	}
	if err := d.DataTo(&idx); err != nil {
		return nil, err
	}
	return r.Get(ctx, idx.UID)
}
