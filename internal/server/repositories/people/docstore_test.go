package people

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore/memstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocRepository(memstore.NewStore(nil))
	red := "red"

	id, err := repo.Create(ctx, "u1", &models.Person{Label: "Jean", Shape: models.ShapeBox, Color: &red})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, "u1", id, models.PersonPatch{Label: models.Some("Jean D."), Color: models.Null[string]()}))
	require.NoError(t, repo.Update(ctx, "u1", id, models.PersonPatch{}))
	require.ErrorIs(t, repo.Update(ctx, "u1", "ghost", models.PersonPatch{Label: models.Some("x")}), common.ErrorNotFound)
	require.NoError(t, repo.SetPortrait(ctx, "u1", id, "portraits/u1/"+id))

	p, err := repo.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "Jean D.", p.Label)
	assert.Nil(t, p.Color)
	assert.Equal(t, models.ShapeBox, p.Shape)
	require.NotNil(t, p.PortraitKey)

	others, err := repo.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, repo.Delete(ctx, "u1", id))
	require.NoError(t, repo.Delete(ctx, "u1", id))
	list, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
