package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/docstore/memstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/auth"
	"github.com/dmitrijs2005/famtree/internal/server/config"
	"github.com/dmitrijs2005/famtree/internal/server/events"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/stream"
	"github.com/stretchr/testify/require"
)

var (
	u1 = &models.Identity{UID: "u1", Email: "a@x.com"}
	u2 = &models.Identity{UID: "u2", Email: "b@y.com"}
	u3 = &models.Identity{UID: "u3", Email: "c@z.com"}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Invitation
	err    error
}

func (p *recordingPublisher) PublishInvitation(_ context.Context, e events.Invitation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	ctx       context.Context
	loop      *stream.Loop
	backend   *memstore.Backend
	store     *docstore.Store
	m         repomanager.RepositoryManager
	cfg       *config.Config
	publisher *recordingPublisher
	revoked   *auth.MemoryRevocationList

	profiles  *ProfileService
	access    *AccessService
	invites   *InvitationService
	graph     *GraphService
	identity  *IdentityService
	portraits *PortraitService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := stream.NewLoop()
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})

	backend := memstore.New(loop)
	store := docstore.New(backend)
	m := repomanager.NewDocRepositoryManager()
	log := logging.Nop{}

	cfg := &config.Config{}
	cfg.LoadDefaults()

	e := &testEnv{
		ctx:       context.Background(),
		loop:      loop,
		backend:   backend,
		store:     store,
		m:         m,
		cfg:       cfg,
		publisher: &recordingPublisher{},
		revoked:   auth.NewMemoryRevocationList(),
	}
	e.profiles = NewProfileService(store, m, log)
	e.access = NewAccessService(store, m, e.profiles, log)
	e.invites = NewInvitationService(store, m, e.profiles, e.publisher, log)
	e.graph = NewGraphService(store, m, e.access, log)
	hasher := auth.NewHasher(&argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	e.identity = NewIdentityService(store, m, e.profiles, hasher, e.revoked, cfg, log)
	e.portraits = NewPortraitService(store, m, e.access, e.graph, cfg, log)
	return e
}

// drain waits until every queued delivery has been processed.
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.loop.Drain(ctx))
}

// signedIn creates the profiles of the given identities.
func (e *testEnv) signedIn(t *testing.T, ids ...*models.Identity) {
	t.Helper()
	for _, id := range ids {
		_, err := e.profiles.EnsureProfile(e.ctx, id)
		require.NoError(t, err)
	}
}

// share runs the whole invite and accept flow from owner to viewer.
func (e *testEnv) share(t *testing.T, owner, viewer *models.Identity) string {
	t.Helper()
	id, err := e.invites.Send(e.ctx, owner, viewer.Email, nil)
	require.NoError(t, err)
	require.NoError(t, e.invites.Accept(e.ctx, viewer, id))
	return id
}

// recorder collects values emitted on the loop.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func record[T any](t *testing.T, e *testEnv, src stream.Source[T]) *recorder[T] {
	t.Helper()
	r := &recorder[T]{}
	cancel, err := stream.Observe(e.ctx, e.loop, src, func(v T) {
		r.mu.Lock()
		r.values = append(r.values, v)
		r.mu.Unlock()
	})
	require.NoError(t, err)
	t.Cleanup(cancel)
	e.drain(t)
	return r
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

func (r *recorder[T]) last() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if len(r.values) == 0 {
		return zero
	}
	return r.values[len(r.values)-1]
}

func labels(people []*models.Person) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		out = append(out, p.Label)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
