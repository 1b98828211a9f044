// Package services contains the server-side core: profiles, tree access,
// invitations, the family graph, identities and portraits. Mutations run on
// the caller's goroutine; live views are stream.Sources evaluated on the
// reactive loop.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/stream"
)

// ProfileService owns the per-identity profile document.
type ProfileService struct {
	store       *docstore.Store
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewProfileService(store *docstore.Store, m repomanager.RepositoryManager, log logging.Logger) *ProfileService {
	return &ProfileService{store: store, repomanager: m, log: log.With("module", "profiles")}
}

// Watch emits the profile of uid, or nil while it does not exist.
func (s *ProfileService) Watch(uid string) stream.Source[*models.Profile] {
	return stream.Func[*models.Profile](func(fn func(*models.Profile)) func() {
		return s.store.WatchDocument(profiles.Path(uid), func(d *docstore.Document, err error) {
			if err != nil {
				s.log.Warn(context.Background(), "profile watch failed", "uid", uid, "error", err)
				return
			}
			if d == nil {
				fn(nil)
				return
			}
			p, err := profiles.Decode(d)
			if err != nil {
				s.log.Error(context.Background(), "undecodable profile", "uid", uid, "error", err)
				return
			}
			fn(p)
		})
	})
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*models.Profile, error) {
	return s.repomanager.Profiles(s.store).Get(ctx, uid)
}

// EnsureProfile creates the profile of id on first sight. The active tree of
// a new profile is the identity's own tree.
func (s *ProfileService) EnsureProfile(ctx context.Context, id *models.Identity) (*models.Profile, error) {
	if id == nil {
		return nil, common.ErrNotAuthenticated
	}
	repo := s.repomanager.Profiles(s.store)

	p, err := repo.Get(ctx, id.UID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error reading profile: %w", err)
	}

	name := id.DisplayName
	if name == "" {
		name = models.DefaultDisplayName(id.Email)
	}
	err = repo.Create(ctx, &models.Profile{
		UID:           id.UID,
		Email:         models.NormalizeEmail(id.Email),
		DisplayName:   name,
		ActiveTreeUID: id.UID,
	})
	switch {
	case err == nil:
		s.log.Info(ctx, "profile created", "uid", id.UID)
	case !errors.Is(err, common.ErrorAlreadyExists):
		return nil, err
	}

	return repo.Get(ctx, id.UID)
}

// SetActiveTree points requester's profile at target, which must be the
// requester's own tree or one shared with them.
func (s *ProfileService) SetActiveTree(ctx context.Context, requester *models.Identity, target string) error {
	if requester == nil {
		return common.ErrNotAuthenticated
	}
	if target == "" {
		return fmt.Errorf("%w: empty tree id", common.ErrInvalidArgument)
	}
	if target != requester.UID {
		_, err := s.repomanager.SharedTrees(s.store).Get(ctx, requester.UID, target)
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: tree %s is not shared with you", common.ErrInvalidOperation, target)
		}
		if err != nil {
			return fmt.Errorf("error reading shared tree: %w", err)
		}
	}
	return s.repomanager.Profiles(s.store).SetActiveTree(ctx, requester.UID, target)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, requester *models.Identity, patch models.ProfilePatch) error {
	if requester == nil {
		return common.ErrNotAuthenticated
	}
	if err := models.ValidateProfilePatch(patch); err != nil {
		return err
	}
	return s.repomanager.Profiles(s.store).Update(ctx, requester.UID, patch)
}
