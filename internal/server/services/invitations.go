package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/events"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/invitations"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/stream"
)

// InvitationService runs the invitation workflow:
// pending -> accepted | declined, both terminal.
type InvitationService struct {
	store       *docstore.Store
	repomanager repomanager.RepositoryManager
	profiles    *ProfileService
	publisher   events.Publisher
	log         logging.Logger
}

func NewInvitationService(store *docstore.Store, m repomanager.RepositoryManager, profiles *ProfileService, p events.Publisher, log logging.Logger) *InvitationService {
	if p == nil {
		p = events.Nop{}
	}
	return &InvitationService{
		store:       store,
		repomanager: m,
		profiles:    profiles,
		publisher:   p,
		log:         log.With("module", "invitations"),
	}
}

// Send invites invitedEmail to view the sender's tree. The duplicate check
// and the insert are separate steps; two concurrent sends of the same pair
// can both succeed.
func (s *InvitationService) Send(ctx context.Context, sender *models.Identity, invitedEmail string, personIDInTree *string) (string, error) {
	if sender == nil {
		return "", common.ErrNotAuthenticated
	}
	email := models.NormalizeEmail(invitedEmail)
	if !models.ValidEmail(email) {
		return "", fmt.Errorf("%w: invalid email %q", common.ErrInvalidArgument, invitedEmail)
	}
	if email == models.NormalizeEmail(sender.Email) {
		return "", common.ErrSelfInvite
	}
	if personIDInTree != nil && *personIDInTree == "" {
		personIDInTree = nil
	}

	repo := s.repomanager.Invitations(s.store)
	existing, err := repo.FindPending(ctx, sender.UID, email)
	if err != nil {
		return "", fmt.Errorf("error checking pending invitations: %w", err)
	}
	if len(existing) > 0 {
		return "", common.ErrDuplicatePending
	}

	inv := &models.Invitation{
		OwnerUID:       sender.UID,
		OwnerEmail:     models.NormalizeEmail(sender.Email),
		InvitedEmail:   email,
		PersonIDInTree: personIDInTree,
	}
	id, err := repo.Create(ctx, inv)
	if err != nil {
		return "", err
	}
	inv.ID = id

	s.log.Info(ctx, "invitation sent", "invitation_id", id, "owner", sender.UID)
	s.publish(ctx, events.InvitationSent, inv, sender.UID)
	return id, nil
}

// Pending emits the pending invitations addressed to the current identity.
func (s *InvitationService) Pending(identities stream.Source[*models.Identity]) stream.Source[[]*models.Invitation] {
	return stream.SwitchMap(identities, func(id *models.Identity) stream.Source[[]*models.Invitation] {
		if id == nil {
			return stream.Of([]*models.Invitation{})
		}
		return stream.Func[[]*models.Invitation](func(fn func([]*models.Invitation)) func() {
			return s.store.WatchQuery(invitations.PendingFor(id.Email), func(docs []*docstore.Document, err error) {
				if err != nil {
					s.log.Warn(context.Background(), "invitations watch failed", "uid", id.UID, "error", err)
					return
				}
				list, err := invitations.DecodeAll(docs)
				if err != nil {
					s.log.Error(context.Background(), "undecodable invitation", "error", err)
					return
				}
				fn(list)
			})
		})
	})
}

// ListPending is the one-shot form of Pending.
func (s *InvitationService) ListPending(ctx context.Context, id *models.Identity) ([]*models.Invitation, error) {
	if id == nil {
		return nil, common.ErrNotAuthenticated
	}
	docs, err := s.store.Query(ctx, invitations.PendingFor(id.Email))
	if err != nil {
		return nil, err
	}
	return invitations.DecodeAll(docs)
}

// load re-reads the invitation and checks it is addressed to id.
func (s *InvitationService) load(ctx context.Context, id *models.Identity, invitationID string) (*models.Invitation, error) {
	if id == nil {
		return nil, common.ErrNotAuthenticated
	}
	inv, err := s.repomanager.Invitations(s.store).Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if models.NormalizeEmail(inv.InvitedEmail) != models.NormalizeEmail(id.Email) {
		return nil, fmt.Errorf("%w: invitation is addressed to someone else", common.ErrAccessDenied)
	}
	if inv.Status != models.InvitationPending {
		return nil, fmt.Errorf("%w: invitation already %s", common.ErrInvalidOperation, inv.Status)
	}
	return inv, nil
}

// Accept marks the invitation accepted and grants viewer access to the
// owner's tree in one atomic batch, then switches the active tree to it.
func (s *InvitationService) Accept(ctx context.Context, id *models.Identity, invitationID string) error {
	inv, err := s.load(ctx, id, invitationID)
	if err != nil {
		return err
	}

	err = s.store.RunBatch(ctx, func(ctx context.Context, db docstore.Accessor) error {
		if err := s.repomanager.Invitations(db).Transition(ctx, inv.ID, models.InvitationAccepted); err != nil {
			return err
		}
		return s.repomanager.SharedTrees(db).Put(ctx, id.UID, &models.SharedTree{
			OwnerUID:       inv.OwnerUID,
			OwnerEmail:     inv.OwnerEmail,
			AccessLevel:    models.AccessViewer,
			LinkedPersonID: inv.PersonIDInTree,
		})
	})
	if err != nil {
		return terminal(err)
	}
	s.log.Info(ctx, "invitation accepted", "invitation_id", inv.ID, "viewer", id.UID)
	s.publish(ctx, events.InvitationAccepted, inv, id.UID)

	if err := s.profiles.SetActiveTree(ctx, id, inv.OwnerUID); err != nil {
		return fmt.Errorf("invitation accepted but switching tree failed: %w", err)
	}
	return nil
}

func (s *InvitationService) Decline(ctx context.Context, id *models.Identity, invitationID string) error {
	inv, err := s.load(ctx, id, invitationID)
	if err != nil {
		return err
	}

	err = s.store.RunBatch(ctx, func(ctx context.Context, db docstore.Accessor) error {
		return s.repomanager.Invitations(db).Transition(ctx, inv.ID, models.InvitationDeclined)
	})
	if err != nil {
		return terminal(err)
	}
	s.log.Info(ctx, "invitation declined", "invitation_id", inv.ID, "viewer", id.UID)
	s.publish(ctx, events.InvitationDeclined, inv, id.UID)
	return nil
}

// terminal reports a lost race against another accept or decline as
// InvalidOperation.
func terminal(err error) error {
	if errors.Is(err, common.ErrPreconditionFailed) {
		return fmt.Errorf("%w: invitation is no longer pending", common.ErrInvalidOperation)
	}
	return err
}

func (s *InvitationService) publish(ctx context.Context, kind string, inv *models.Invitation, actor string) {
	err := s.publisher.PublishInvitation(ctx, events.Invitation{
		Type:         kind,
		InvitationID: inv.ID,
		OwnerUID:     inv.OwnerUID,
		OwnerEmail:   inv.OwnerEmail,
		InvitedEmail: inv.InvitedEmail,
		ActorUID:     actor,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn(ctx, "event publish failed", "type", kind, "invitation_id", inv.ID, "error", err)
	}
}
