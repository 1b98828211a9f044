package relationships

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
)

func Collection(treeUID string) string {
	return docstore.Join("trees", treeUID, "relationships")
}

func Path(treeUID, id string) string {
	return docstore.Join(Collection(treeUID), id)
}

func Query(treeUID string) docstore.Query {
	return docstore.Collection(Collection(treeUID))
}

func Decode(d *docstore.Document) (*models.Relationship, error) {
	rel := &models.Relationship{}
	if err := d.DataTo(rel); err != nil {
		return nil, err
	}
	rel.ID = d.ID
	return rel, nil
}

func DecodeAll(docs []*docstore.Document) ([]*models.Relationship, error) {
	out := make([]*models.Relationship, 0, len(docs))
	for _, d := range docs {
		rel, err := Decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

type DocRepository struct {
	db docstore.Accessor
}

func NewDocRepository(db docstore.Accessor) *DocRepository {
	return &DocRepository{db: db}
}

func (r *DocRepository) List(ctx context.Context, treeUID string) ([]*models.Relationship, error) {
	docs, err := r.db.Query(ctx, Query(treeUID))
	if err != nil {
		return nil, err
	}
	return DecodeAll(docs)
}

func (r *DocRepository) Touching(ctx context.Context, treeUID, personID string) ([]*models.Relationship, error) {
	from, err := r.db.Query(ctx, Query(treeUID).Where("from", personID))
	if err != nil {
		return nil, err
	}
	to, err := r.db.Query(ctx, Query(treeUID).Where("to", personID))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var docs []*docstore.Document
	for _, d := range append(from, to...) {
		if !seen[d.ID] {
			seen[d.ID] = true
			docs = append(docs, d)
		}
	}
	docstore.SortByID(docs)
	return DecodeAll(docs)
}

func (r *DocRepository) Create(ctx context.Context, treeUID string, rel *models.Relationship) (string, error) {
	id := docstore.NewID()
	err := r.db.Create(ctx, Path(treeUID, id), map[string]any{
		"from":   rel.From,
		"to":     rel.To,
		"type":   rel.Type,
		"label":  rel.Label,
		"arrows": rel.Arrows,
		"dashes": rel.Dashes,
		"color":  rel.Color,
	})
	if err != nil {
		return "", fmt.Errorf("create relationship: %w", err)
	}
	return id, nil
}

func (r *DocRepository) Update(ctx context.Context, treeUID, id string, patch models.RelationshipPatch) error {
	data := patch.Data()
	if len(data) == 0 {
		return nil
	}
	if err := r.db.Update(ctx, Path(treeUID, id), data); err != nil {
		return fmt.Errorf("update relationship: %w", err)
	}
	return nil
}

func (r *DocRepository) Delete(ctx context.Context, treeUID, id string) error {
	if err := r.db.Delete(ctx, Path(treeUID, id)); err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	return nil
}
