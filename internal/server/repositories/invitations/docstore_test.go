package invitations

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore/memstore"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewDocRepository(memstore.NewStore(nil))

	id, err := repo.Create(ctx, &models.Invitation{OwnerUID: "u1", OwnerEmail: "a@x.com", InvitedEmail: " B@Y.com"})
	require.NoError(t, err)

	inv, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, inv.ID)
	assert.Equal(t, "b@y.com", inv.InvitedEmail)
	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.False(t, inv.CreatedAt.IsZero())

	pending, err := repo.FindPending(ctx, "u1", "b@y.com")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	none, err := repo.FindPending(ctx, "u9", "b@y.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.Transition(ctx, id, models.InvitationDeclined))
	assert.ErrorIs(t, repo.Transition(ctx, id, models.InvitationAccepted), common.ErrPreconditionFailed)

	inv, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, inv.Status)

	assert.ErrorIs(t, repo.Transition(ctx, "missing", models.InvitationAccepted), common.ErrorNotFound)
}
