package relationships

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/famtree/internal/docstore/memstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocRepository(memstore.NewStore(nil))

	mk := func(from, to string) string {
		id, err := repo.Create(ctx, "u1", &models.Relationship{From: from, To: to, Type: models.Father, Label: "père", Arrows: "to"})
		require.NoError(t, err)
		return id
	}
	a := mk("p1", "p2")
	b := mk("p3", "p1")
	mk("p2", "p3")

	touching, err := repo.Touching(ctx, "u1", "p1")
	require.NoError(t, err)
	ids := []string{}
	for _, r := range touching {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{a, b}, ids)

	require.NoError(t, repo.Update(ctx, "u1", a, models.RelationshipPatch{Dashes: models.Some(true)}))
	all, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, r := range all {
		if r.ID == a {
			assert.True(t, r.Dashes)
			assert.Equal(t, "p1", r.From)
		}
	}

	require.NoError(t, repo.Delete(ctx, "u1", a))
	all, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
