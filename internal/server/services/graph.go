package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/people"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/relationships"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/stream"
)

// GraphService reads and edits the people and relationships of trees. Only
// the owner of the active tree may edit it.
type GraphService struct {
	store       *docstore.Store
	repomanager repomanager.RepositoryManager
	access      *AccessService
	log         logging.Logger
}

func NewGraphService(store *docstore.Store, m repomanager.RepositoryManager, access *AccessService, log logging.Logger) *GraphService {
	return &GraphService{store: store, repomanager: m, access: access, log: log.With("module", "graph")}
}

// People emits the people of the active tree, re-binding whenever the active
// tree changes.
func (s *GraphService) People(identities stream.Source[*models.Identity]) stream.Source[[]*models.Person] {
	return stream.SwitchMap(s.access.ActiveTreeUID(identities), s.PeopleOf)
}

// PeopleOf emits the people of tree.
func (s *GraphService) PeopleOf(tree string) stream.Source[[]*models.Person] {
	if tree == "" {
		return stream.Of([]*models.Person{})
	}
	return stream.Func[[]*models.Person](func(fn func([]*models.Person)) func() {
		return s.store.WatchQuery(people.Query(tree), func(docs []*docstore.Document, err error) {
			if err != nil {
				s.log.Warn(context.Background(), "people watch failed", "tree", tree, "error", err)
				return
			}
			list, err := people.DecodeAll(docs)
			if err != nil {
				s.log.Error(context.Background(), "undecodable person", "tree", tree, "error", err)
				return
			}
			fn(list)
		})
	})
}

// Relationships emits the relationships of the active tree.
func (s *GraphService) Relationships(identities stream.Source[*models.Identity]) stream.Source[[]*models.Relationship] {
	return stream.SwitchMap(s.access.ActiveTreeUID(identities), s.RelationshipsOf)
}

// RelationshipsOf emits the relationships of tree.
func (s *GraphService) RelationshipsOf(tree string) stream.Source[[]*models.Relationship] {
	if tree == "" {
		return stream.Of([]*models.Relationship{})
	}
	return stream.Func[[]*models.Relationship](func(fn func([]*models.Relationship)) func() {
		return s.store.WatchQuery(relationships.Query(tree), func(docs []*docstore.Document, err error) {
			if err != nil {
				s.log.Warn(context.Background(), "relationships watch failed", "tree", tree, "error", err)
				return
			}
			list, err := relationships.DecodeAll(docs)
			if err != nil {
				s.log.Error(context.Background(), "undecodable relationship", "tree", tree, "error", err)
				return
			}
			fn(list)
		})
	})
}

func (s *GraphService) ListPeople(ctx context.Context, id *models.Identity) ([]*models.Person, error) {
	tree, err := s.access.ResolveActiveTree(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repomanager.People(s.store).List(ctx, tree)
}

func (s *GraphService) ListRelationships(ctx context.Context, id *models.Identity) ([]*models.Relationship, error) {
	tree, err := s.access.ResolveActiveTree(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Relationships(s.store).List(ctx, tree)
}

// authorize returns the tree id is allowed to edit: its active tree, which
// must be its own.
func (s *GraphService) authorize(ctx context.Context, id *models.Identity) (string, error) {
	if id == nil {
		return "", common.ErrNotAuthenticated
	}
	tree, err := s.access.ResolveActiveTree(ctx, id)
	if err != nil {
		return "", err
	}
	if tree != id.UID {
		s.log.Warn(ctx, "edit of foreign tree refused", "uid", id.UID, "tree", tree)
		return "", fmt.Errorf("%w: tree %s is read-only for you", common.ErrAccessDenied, tree)
	}
	return tree, nil
}

func (s *GraphService) AddPerson(ctx context.Context, id *models.Identity, p models.Person) (string, error) {
	tree, err := s.authorize(ctx, id)
	if err != nil {
		return "", err
	}
	p = p.WithDefaults()
	if err := models.Validate(p); err != nil {
		return "", err
	}
	personID, err := s.repomanager.People(s.store).Create(ctx, tree, &p)
	if err != nil {
		return "", err
	}
	s.log.Debug(ctx, "person added", "tree", tree, "person_id", personID)
	return personID, nil
}

func (s *GraphService) UpdatePerson(ctx context.Context, id *models.Identity, personID string, patch models.PersonPatch) error {
	tree, err := s.authorize(ctx, id)
	if err != nil {
		return err
	}
	if err := models.ValidatePersonPatch(patch); err != nil {
		return err
	}
	return s.repomanager.People(s.store).Update(ctx, tree, personID, patch)
}

// DeletePerson removes the person together with every relationship touching
// it. Deleting an absent person succeeds.
func (s *GraphService) DeletePerson(ctx context.Context, id *models.Identity, personID string) error {
	tree, err := s.authorize(ctx, id)
	if err != nil {
		return err
	}
	err = s.store.RunBatch(ctx, func(ctx context.Context, db docstore.Accessor) error {
		rels := s.repomanager.Relationships(db)
		touching, err := rels.Touching(ctx, tree, personID)
		if err != nil {
			return err
		}
		for _, r := range touching {
			if err := rels.Delete(ctx, tree, r.ID); err != nil {
				return err
			}
		}
		return s.repomanager.People(db).Delete(ctx, tree, personID)
	})
	if err != nil {
		return err
	}
	s.log.Debug(ctx, "person deleted", "tree", tree, "person_id", personID)
	return nil
}

func (s *GraphService) AddRelationship(ctx context.Context, id *models.Identity, r models.Relationship) (string, error) {
	tree, err := s.authorize(ctx, id)
	if err != nil {
		return "", err
	}
	if r.From != "" && r.From == r.To {
		return "", common.ErrSelfLoop
	}
	r = r.WithDefaults()
	if err := models.Validate(r); err != nil {
		return "", err
	}

	repo := s.repomanager.People(s.store)
	for _, end := range []string{r.From, r.To} {
		if _, err := repo.Get(ctx, tree, end); err != nil {
			return "", fmt.Errorf("endpoint %s: %w", end, err)
		}
	}

	relID, err := s.repomanager.Relationships(s.store).Create(ctx, tree, &r)
	if err != nil {
		return "", err
	}
	s.log.Debug(ctx, "relationship added", "tree", tree, "relationship_id", relID)
	return relID, nil
}

func (s *GraphService) UpdateRelationship(ctx context.Context, id *models.Identity, relID string, patch models.RelationshipPatch) error {
	tree, err := s.authorize(ctx, id)
	if err != nil {
		return err
	}
	if err := models.ValidateRelationshipPatch(patch); err != nil {
		return err
	}
	return s.repomanager.Relationships(s.store).Update(ctx, tree, relID, patch)
}

func (s *GraphService) DeleteRelationship(ctx context.Context, id *models.Identity, relID string) error {
	tree, err := s.authorize(ctx, id)
	if err != nil {
		return err
	}
	return s.repomanager.Relationships(s.store).Delete(ctx, tree, relID)
}
