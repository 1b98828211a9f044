package view

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/stream"
)

// Registry tracks the live sessions opened with each access token, keyed by
// the token ID, so revoking a token signs all of them out.
type Registry struct {
	loop     *stream.Loop
	profiles ProfileEnsurer
	log      logging.Logger

	mu       sync.Mutex
	sessions map[string]map[*Session]struct{}
}

func NewRegistry(loop *stream.Loop, profiles ProfileEnsurer, log logging.Logger) *Registry {
	return &Registry{
		loop:     loop,
		profiles: profiles,
		log:      log,
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Open signs a new session in as id and registers it under tokenID. The
// returned release unregisters it.
func (r *Registry) Open(ctx context.Context, tokenID string, id *models.Identity) (*Session, func(), error) {
	s := NewSession(r.loop, r.profiles, r.log)
	if err := s.SignIn(ctx, id); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	set, ok := r.sessions[tokenID]
	if !ok {
		set = make(map[*Session]struct{})
		r.sessions[tokenID] = set
	}
	set[s] = struct{}{}
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.sessions[tokenID]; ok {
			delete(cur, s)
			if len(cur) == 0 {
				delete(r.sessions, tokenID)
			}
		}
	}
	return s, release, nil
}

// SignOut signs out every session opened with tokenID.
func (r *Registry) SignOut(tokenID string) {
	r.mu.Lock()
	set := r.sessions[tokenID]
	delete(r.sessions, tokenID)
	open := make([]*Session, 0, len(set))
	for s := range set {
		open = append(open, s)
	}
	r.mu.Unlock()

	for _, s := range open {
		s.SignOut()
	}
}

// Len reports the number of tokens with open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
