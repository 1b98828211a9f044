// Package view composes everything one signed-in client sees into a single
// live Snapshot.
package view

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/stream"
)

// ProfileEnsurer creates the profile of an identity seen for the first time.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, id *models.Identity) (*models.Profile, error)
}

// Session owns the identity stream of one client. It starts signed out.
type Session struct {
	loop       *stream.Loop
	identities *stream.Subject[*models.Identity]
	profiles   ProfileEnsurer
	log        logging.Logger
}

func NewSession(loop *stream.Loop, profiles ProfileEnsurer, log logging.Logger) *Session {
	return &Session{
		loop:       loop,
		identities: stream.NewSubject[*models.Identity](loop, nil),
		profiles:   profiles,
		log:        log.With("module", "session"),
	}
}

// Identities emits the current identity, nil while signed out.
func (s *Session) Identities() stream.Source[*models.Identity] {
	return s.identities
}

// SignIn makes id current. Its profile exists before anything downstream
// observes the identity.
func (s *Session) SignIn(ctx context.Context, id *models.Identity) error {
	if id == nil {
		return common.ErrNotAuthenticated
	}
	if _, err := s.profiles.EnsureProfile(ctx, id); err != nil {
		return err
	}
	s.log.Debug(ctx, "session identity changed", "uid", id.UID)
	s.identities.Next(id)
	return nil
}

func (s *Session) SignOut() {
	s.identities.Next(nil)
}

// Current reads the identity as of now.
func (s *Session) Current(ctx context.Context) (*models.Identity, error) {
	return stream.First[*models.Identity](ctx, s.loop, s.identities)
}
