// Package repomanager vends repositories bound to a docstore.Accessor, so the
// same repository code runs directly against the store or inside a batch.
package repomanager

import (
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/invitations"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/people"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/relationships"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/sharedtrees"
)

type RepositoryManager interface {
	Profiles(db docstore.Accessor) profiles.Repository
	SharedTrees(db docstore.Accessor) sharedtrees.Repository
	Invitations(db docstore.Accessor) invitations.Repository
	People(db docstore.Accessor) people.Repository
	Relationships(db docstore.Accessor) relationships.Repository
	Accounts(db docstore.Accessor) accounts.Repository
}

// DocRepositoryManager vends the docstore-backed repositories.
type DocRepositoryManager struct{}

func NewDocRepositoryManager() *DocRepositoryManager {
	return &DocRepositoryManager{}
}

func (m *DocRepositoryManager) Profiles(db docstore.Accessor) profiles.Repository {
	return profiles.NewDocRepository(db)
}

func (m *DocRepositoryManager) SharedTrees(db docstore.Accessor) sharedtrees.Repository {
	return sharedtrees.NewDocRepository(db)
}

func (m *DocRepositoryManager) Invitations(db docstore.Accessor) invitations.Repository {
	return invitations.NewDocRepository(db)
}

func (m *DocRepositoryManager) People(db docstore.Accessor) people.Repository {
	return people.NewDocRepository(db)
}

func (m *DocRepositoryManager) Relationships(db docstore.Accessor) relationships.Repository {
	return relationships.NewDocRepository(db)
}

func (m *DocRepositoryManager) Accounts(db docstore.Accessor) accounts.Repository {
	return accounts.NewDocRepository(db)
}
