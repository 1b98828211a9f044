package sharedtrees

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

// Collection holds the grants an identity has received, keyed by owner UID.
func Collection(viewerUID string) string {
	return docstore.Join("identities", viewerUID, "sharedTrees")
}

func Path(viewerUID, ownerUID string) string {
	return docstore.Join(Collection(viewerUID), ownerUID)
}

func Query(viewerUID string) docstore.Query {
	return docstore.Collection(Collection(viewerUID))
}

func Decode(d *docstore.Document) (*models.SharedTree, error) {
	t := &models.SharedTree{}
	if err := d.DataTo(t); err != nil {
		return nil, err
	}
	t.ID = d.ID
	if t.OwnerUID == "" {
		t.OwnerUID = d.ID
	}
	t.IsSelected = false
	return t, nil
}

func DecodeAll(docs []*docstore.Document) ([]*models.SharedTree, error) {
	out := make([]*models.SharedTree, 0, len(docs))
	for _, d := range docs {
		t, err := Decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type DocRepository struct {
	db docstore.Accessor
}

func NewDocRepository(db docstore.Accessor) *DocRepository {
	return &DocRepository{db: db}
}

func (r *DocRepository) List(ctx context.Context, viewerUID string) ([]*models.SharedTree, error) {
	docs, err := r.db.Query(ctx, Query(viewerUID))
	if err != nil {
		return nil, err
	}
	return DecodeAll(docs)
}

func (r *DocRepository) Get(ctx context.Context, viewerUID, ownerUID string) (*models.SharedTree, error) {
	d, err := r.db.Get(ctx, Path(viewerUID, ownerUID))
	if err != nil {
		return nil, err
	}
	return Decode(d)
}

func (r *DocRepository) Put(ctx context.Context, viewerUID string, t *models.SharedTree) error {
	err := r.db.Set(ctx, Path(viewerUID, t.OwnerUID), map[string]any{
		"ownerUid":       t.OwnerUID,
		"ownerEmail":     t.OwnerEmail,
		"treeName":       t.TreeName,
		"accessLevel":    t.AccessLevel,
		"linkedPersonId": t.LinkedPersonID,
	})
	if err != nil {
		return fmt.Errorf("put shared tree: %w", err)
	}
	return nil
}

func (r *DocRepository) Delete(ctx context.Context, viewerUID, ownerUID string) error {
	if err := r.db.Delete(ctx, Path(viewerUID, ownerUID)); err != nil {
		return fmt.Errorf("delete shared tree: %w", err)
	}
	return nil
}
