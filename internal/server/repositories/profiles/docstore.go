package profiles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

// Path is the single profile document of an identity.
func Path(uid string) string {
	return docstore.Join("identities", uid, "profile", "data")
}

func Decode(d *docstore.Document) (*models.Profile, error) {
	p := &models.Profile{}
	if err := d.DataTo(p); err != nil {
		return nil, err
	}
	if p.UID == "" {
		p.UID = docstore.Base(docstore.Parent(docstore.Parent(d.Path)))
	}
	return p, nil
}

type DocRepository struct {
	db docstore.Accessor
}

func NewDocRepository(db docstore.Accessor) *DocRepository {
	return &DocRepository{db: db}
}

func (r *DocRepository) Get(ctx context.Context, uid string) (*models.Profile, error) {
	d, err := r.db.Get(ctx, Path(uid))
	if err != nil {
		return nil, err
	}
	return Decode(d)
}

// Create writes a new profile. It fails with common.ErrorAlreadyExists when
// a concurrent creator got there first, leaving that profile untouched.
func (r *DocRepository) Create(ctx context.Context, p *models.Profile) error {
	err := r.db.Create(ctx, Path(p.UID), map[string]any{
		"uid":           p.UID,
		"email":         p.Email,
		"displayName":   p.DisplayName,
		"activeTreeUid": p.ActiveTreeUID,
		"createdAt":     docstore.ServerTimestamp,
		"updatedAt":     docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *DocRepository) SetActiveTree(ctx context.Context, uid, treeUID string) error {
	err := r.db.Merge(ctx, Path(uid), map[string]any{
		"activeTreeUid": treeUID,
		"updatedAt":     docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("set active tree: %w", err)
	}
	return nil
}

func (r *DocRepository) Update(ctx context.Context, uid string, patch models.ProfilePatch) error {
	data := patch.Data()
	data["updatedAt"] = docstore.ServerTimestamp
	if err := r.db.Merge(ctx, Path(uid), data); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
