package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/sharedtrees"
	"github.com/dmitrijs2005/famtree/internal/stream"
)

// AccessService answers which trees an identity may view and which one it is
// viewing now.
type AccessService struct {
	store       *docstore.Store
	repomanager repomanager.RepositoryManager
	profiles    *ProfileService
	log         logging.Logger
}

func NewAccessService(store *docstore.Store, m repomanager.RepositoryManager, profiles *ProfileService, log logging.Logger) *AccessService {
	return &AccessService{store: store, repomanager: m, profiles: profiles, log: log.With("module", "access")}
}

// resolve picks the tree to show: the stored choice when it is the identity's
// own tree or a tree still shared with it, the own tree otherwise.
func resolve(id *models.Identity, p *models.Profile, shared []*models.SharedTree) string {
	if p == nil || p.ActiveTreeUID == "" || p.ActiveTreeUID == id.UID {
		return id.UID
	}
	for _, t := range shared {
		if t.OwnerUID == p.ActiveTreeUID {
			return p.ActiveTreeUID
		}
	}
	return id.UID
}

// watchShared emits the persisted shared-tree entries of uid.
func (s *AccessService) watchShared(uid string) stream.Source[[]*models.SharedTree] {
	return stream.Func[[]*models.SharedTree](func(fn func([]*models.SharedTree)) func() {
		return s.store.WatchQuery(sharedtrees.Query(uid), func(docs []*docstore.Document, err error) {
			if err != nil {
				s.log.Warn(context.Background(), "shared trees watch failed", "uid", uid, "error", err)
				return
			}
			list, err := sharedtrees.DecodeAll(docs)
			if err != nil {
				s.log.Error(context.Background(), "undecodable shared tree", "uid", uid, "error", err)
				return
			}
			fn(list)
		})
	})
}

// AccessState is the active tree of one identity together with the trees it
// can view. Both are derived from the same profile and shared-tree values,
// so IsSelected always marks Active.
type AccessState struct {
	Active string
	Trees  []*models.SharedTree
}

// State emits the AccessState of id. It holds one profile watch and one
// shared-tree watch.
func (s *AccessService) State(id *models.Identity) stream.Source[AccessState] {
	return stream.CombineLatest2(s.profiles.Watch(id.UID), s.watchShared(id.UID),
		func(p *models.Profile, shared []*models.SharedTree) AccessState {
			active := resolve(id, p, shared)
			return AccessState{Active: active, Trees: accessibleList(id, active, shared)}
		})
}

func (s *AccessService) activeFor(id *models.Identity) stream.Source[string] {
	return stream.Map(s.State(id), func(st AccessState) string { return st.Active })
}

// ActiveTreeUID emits the active tree of the current identity, or "" while
// nobody is signed in. Consecutive duplicates are suppressed.
func (s *AccessService) ActiveTreeUID(identities stream.Source[*models.Identity]) stream.Source[string] {
	return stream.Distinct(stream.SwitchMap(identities, func(id *models.Identity) stream.Source[string] {
		if id == nil {
			return stream.Of("")
		}
		return s.activeFor(id)
	}))
}

// ResolveActiveTree reads the active tree of id straight from the store.
// Every mutation calls it instead of trusting a cached value.
func (s *AccessService) ResolveActiveTree(ctx context.Context, id *models.Identity) (string, error) {
	if id == nil {
		return "", common.ErrNotAuthenticated
	}
	p, err := s.repomanager.Profiles(s.store).Get(ctx, id.UID)
	if errors.Is(err, common.ErrorNotFound) {
		return id.UID, nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading profile: %w", err)
	}
	if p.ActiveTreeUID == "" || p.ActiveTreeUID == id.UID {
		return id.UID, nil
	}

	_, err = s.repomanager.SharedTrees(s.store).Get(ctx, id.UID, p.ActiveTreeUID)
	if errors.Is(err, common.ErrorNotFound) {
		return id.UID, nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading shared tree: %w", err)
	}
	return p.ActiveTreeUID, nil
}

// OwnTree is the synthesized entry for the identity's own tree.
func OwnTree(id *models.Identity) *models.SharedTree {
	return &models.SharedTree{
		ID:          id.UID,
		OwnerUID:    id.UID,
		OwnerEmail:  id.Email,
		AccessLevel: models.AccessEditor,
	}
}

// AccessibleTrees emits the own tree first, then every shared tree, with
// IsSelected marking the active one.
func (s *AccessService) AccessibleTrees(identities stream.Source[*models.Identity]) stream.Source[[]*models.SharedTree] {
	return stream.SwitchMap(identities, func(id *models.Identity) stream.Source[[]*models.SharedTree] {
		if id == nil {
			return stream.Of([]*models.SharedTree{})
		}
		return stream.Map(s.State(id), func(st AccessState) []*models.SharedTree { return st.Trees })
	})
}

func accessibleList(id *models.Identity, active string, shared []*models.SharedTree) []*models.SharedTree {
	own := OwnTree(id)
	own.IsSelected = active == id.UID
	out := []*models.SharedTree{own}
	for _, t := range shared {
		c := *t
		c.IsSelected = c.OwnerUID == active
		out = append(out, &c)
	}
	return out
}

// ListAccessibleTrees is the one-shot form of AccessibleTrees.
func (s *AccessService) ListAccessibleTrees(ctx context.Context, id *models.Identity) ([]*models.SharedTree, error) {
	active, err := s.ResolveActiveTree(ctx, id)
	if err != nil {
		return nil, err
	}
	shared, err := s.repomanager.SharedTrees(s.store).List(ctx, id.UID)
	if err != nil {
		return nil, fmt.Errorf("error listing shared trees: %w", err)
	}
	return accessibleList(id, active, shared), nil
}

// RemoveSharedTree drops the grant to ownerUID's tree. When that tree is the
// active one the profile is pointed back at the identity's own tree first,
// so the removed tree is never observed as active without its grant.
func (s *AccessService) RemoveSharedTree(ctx context.Context, id *models.Identity, ownerUID string) error {
	if id == nil {
		return common.ErrNotAuthenticated
	}
	if ownerUID == id.UID {
		return fmt.Errorf("%w: your own tree cannot be removed", common.ErrInvalidOperation)
	}

	p, err := s.repomanager.Profiles(s.store).Get(ctx, id.UID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error reading profile: %w", err)
	}
	if p != nil && p.ActiveTreeUID == ownerUID {
		if err := s.repomanager.Profiles(s.store).SetActiveTree(ctx, id.UID, id.UID); err != nil {
			return err
		}
	}

	if err := s.repomanager.SharedTrees(s.store).Delete(ctx, id.UID, ownerUID); err != nil {
		return err
	}
	s.log.Info(ctx, "shared tree removed", "uid", id.UID, "owner", ownerUID)
	return nil
}
