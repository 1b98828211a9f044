package people

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

func Collection(treeUID string) string {
	return docstore.Join("trees", treeUID, "people")
}

func Path(treeUID, id string) string {
	return docstore.Join(Collection(treeUID), id)
}

func Query(treeUID string) docstore.Query {
	return docstore.Collection(Collection(treeUID))
}

func Decode(d *docstore.Document) (*models.Person, error) {
	p := &models.Person{}
	if err := d.DataTo(p); err != nil {
		return nil, err
	}
	p.ID = d.ID
	return p, nil
}

func DecodeAll(docs []*docstore.Document) ([]*models.Person, error) {
	out := make([]*models.Person, 0, len(docs))
	for _, d := range docs {
		p, err := Decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type DocRepository struct {
	db docstore.Accessor
}

func NewDocRepository(db docstore.Accessor) *DocRepository {
	return &DocRepository{db: db}
}

func (r *DocRepository) Get(ctx context.Context, treeUID, id string) (*models.Person, error) {
	d, err := r.db.Get(ctx, Path(treeUID, id))
	if err != nil {
		return nil, err
	}
	return Decode(d)
}

func (r *DocRepository) List(ctx context.Context, treeUID string) ([]*models.Person, error) {
	docs, err := r.db.Query(ctx, Query(treeUID))
	if err != nil {
		return nil, err
	}
	return DecodeAll(docs)
}

func (r *DocRepository) Create(ctx context.Context, treeUID string, p *models.Person) (string, error) {
	id := docstore.NewID()
	err := r.db.Create(ctx, Path(treeUID, id), map[string]any{
		"label":  p.Label,
		"shape":  p.Shape,
		"color":  p.Color,
		"dob":    p.DOB,
		"gender": p.Gender,
	})
	if err != nil {
		return "", fmt.Errorf("create person: %w", err)
	}
	return id, nil
}

// Update applies patch; the store reports common.ErrorNotFound for unknown ids.
func (r *DocRepository) Update(ctx context.Context, treeUID, id string, patch models.PersonPatch) error {
	data := patch.Data()
	if len(data) == 0 {
		return nil
	}
	if err := r.db.Update(ctx, Path(treeUID, id), data); err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return nil
}

func (r *DocRepository) SetPortrait(ctx context.Context, treeUID, id, key string) error {
	if err := r.db.Update(ctx, Path(treeUID, id), map[string]any{"portraitKey": key}); err != nil {
		return fmt.Errorf("set portrait: %w", err)
	}
	return nil
}

func (r *DocRepository) Delete(ctx context.Context, treeUID, id string) error {
	if err := r.db.Delete(ctx, Path(treeUID, id)); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}
