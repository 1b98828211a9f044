package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/docstore/memstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/auth"
	"github.com/dmitrijs2005/famtree/internal/server/config"
	"github.com/dmitrijs2005/famtree/internal/server/events"
	gs "github.com/dmitrijs2005/famtree/internal/server/grpc"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/render"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/server/services"
	"github.com/dmitrijs2005/famtree/internal/server/view"
	"github.com/dmitrijs2005/famtree/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// startServer runs a real famtree server over an in-memory listener and
// returns a dial option reaching it.
func startServer(t *testing.T) grpc.DialOption {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := stream.NewLoop()
	go func() { _ = loop.Run(ctx) }()

	store := docstore.New(memstore.New(loop))
	m := repomanager.NewDocRepositoryManager()
	log := logging.Nop{}
	cfg := &config.Config{}
	cfg.LoadDefaults()

	profiles := services.NewProfileService(store, m, log)
	access := services.NewAccessService(store, m, profiles, log)
	invites := services.NewInvitationService(store, m, profiles, events.Nop{}, log)
	graph := services.NewGraphService(store, m, access, log)
	hasher := auth.NewHasher(&argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})

	identity := services.NewIdentityService(store, m, profiles, hasher, auth.NewMemoryRevocationList(), cfg, log)
	sessions := view.NewRegistry(loop, profiles, log)
	identity.OnSignOut(sessions.SignOut)

	srv := gs.NewGRPCServer("bufnet", log, gs.Services{
		Identity:    identity,
		Profiles:    profiles,
		Access:      access,
		Invitations: invites,
		Graph:       graph,
		Portraits:   services.NewPortraitService(store, m, access, graph, cfg, log),
		Composer:    view.NewComposer(loop, access, invites, graph),
		Sessions:    sessions,
	})

	lis := bufconn.Listen(1 << 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		<-loop.Done()
	})

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func newTestClient(t *testing.T, dial grpc.DialOption) *GRPCClient {
	t.Helper()
	c, err := NewGRPCClient("passthrough:///bufnet", dial)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPCClient_SessionLifecycle(t *testing.T) {
	c := newTestClient(t, startServer(t))
	ctx := testCtx(t)

	require.NoError(t, c.Ping(ctx))

	_, err := c.GetProfile(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)

	s, err := c.Register(ctx, "a@x.com", "secret1", "Alice")
	require.NoError(t, err)
	c.SetToken(s.AccessToken)

	p, err := c.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, s.Identity.UID, p.ActiveTreeUID)

	require.NoError(t, c.SignOut(ctx))
	_, err = c.GetProfile(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, common.MsgSessionExpired, err.Error())
}

func TestGRPCClient_ErrorsCarryUserMessage(t *testing.T) {
	c := newTestClient(t, startServer(t))
	ctx := testCtx(t)

	_, err := c.SignIn(ctx, "nobody@x.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, common.MsgInvalidCredentials, err.Error())

	s, err := c.Register(ctx, "a@x.com", "secret1", "")
	require.NoError(t, err)
	c.SetToken(s.AccessToken)

	_, err = c.SendInvitation(ctx, "a@x.com", nil)
	require.Error(t, err)
	assert.Equal(t, common.MsgSelfInvite, err.Error())
}

func TestGRPCClient_GraphAndSharing(t *testing.T) {
	dial := startServer(t)
	owner := newTestClient(t, dial)
	viewer := newTestClient(t, dial)
	ctx := testCtx(t)

	own, err := owner.Register(ctx, "a@x.com", "secret1", "")
	require.NoError(t, err)
	owner.SetToken(own.AccessToken)
	vs, err := viewer.Register(ctx, "b@y.com", "secret1", "")
	require.NoError(t, err)
	viewer.SetToken(vs.AccessToken)

	alice, err := owner.Dispatch(ctx, render.Intent{Kind: render.AddNode, Person: &models.Person{Label: "Alice"}})
	require.NoError(t, err)
	bob, err := owner.Dispatch(ctx, render.Intent{Kind: render.AddNode, Person: &models.Person{Label: "Bob"}})
	require.NoError(t, err)
	_, err = owner.Dispatch(ctx, render.Intent{Kind: render.AddEdge,
		Relationship: &models.Relationship{From: alice, To: bob, Type: models.Son}})
	require.NoError(t, err)

	inv, err := owner.SendInvitation(ctx, "b@y.com", &alice)
	require.NoError(t, err)

	pending, err := viewer.ListPendingInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, inv, pending[0].ID)

	require.NoError(t, viewer.AcceptInvitation(ctx, inv))

	trees, err := viewer.ListAccessibleTrees(ctx)
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, own.Identity.UID, trees[1].OwnerUID)
	assert.True(t, trees[1].IsSelected)
	require.NotNil(t, trees[1].LinkedPersonID)
	assert.Equal(t, alice, *trees[1].LinkedPersonID)

	rels, err := viewer.ListRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)

	_, err = viewer.Dispatch(ctx, render.Intent{Kind: render.DeleteNode, ID: alice})
	require.Error(t, err)
	assert.Equal(t, common.MsgAccessDenied, err.Error())

	require.NoError(t, viewer.SetActiveTree(ctx, vs.Identity.UID))
	people, err := viewer.ListPeople(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)

	require.NoError(t, viewer.RemoveSharedTree(ctx, own.Identity.UID))
	trees, err = viewer.ListAccessibleTrees(ctx)
	require.NoError(t, err)
	assert.Len(t, trees, 1)
}

type snapshots struct {
	mu   sync.Mutex
	list []view.Snapshot
	ch   chan struct{}
}

func (s *snapshots) add(v view.Snapshot) {
	s.mu.Lock()
	s.list = append(s.list, v)
	s.mu.Unlock()
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// waitFor blocks until a received snapshot satisfies ok.
func (s *snapshots) waitFor(t *testing.T, ok func(view.Snapshot) bool) view.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		s.mu.Lock()
		for _, v := range s.list {
			if ok(v) {
				s.mu.Unlock()
				return v
			}
		}
		s.mu.Unlock()
		select {
		case <-s.ch:
		case <-deadline:
			t.Fatal("snapshot not received")
		}
	}
}

func TestGRPCClient_WatchView(t *testing.T) {
	c := newTestClient(t, startServer(t))
	ctx := testCtx(t)

	s, err := c.Register(ctx, "a@x.com", "secret1", "")
	require.NoError(t, err)
	c.SetToken(s.AccessToken)

	got := &snapshots{ch: make(chan struct{}, 1)}
	watchCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.WatchView(watchCtx, got.add) }()

	first := got.waitFor(t, func(v view.Snapshot) bool { return v.Identity != nil })
	assert.Equal(t, "My tree (a@x.com)", first.TreeLabel)
	assert.Empty(t, first.Nodes)

	_, err = c.Dispatch(ctx, render.Intent{Kind: render.AddNode, Person: &models.Person{Label: "Alice"}})
	require.NoError(t, err)

	got.waitFor(t, func(v view.Snapshot) bool {
		return len(v.Nodes) == 1 && v.Nodes[0].Label == "Alice"
	})

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WatchView did not return after cancel")
	}
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))

	plain := errors.New("plain")
	assert.Equal(t, plain, mapError(plain))

	err := mapError(status.Error(codes.Unavailable, common.MsgUnavailable))
	assert.ErrorIs(t, err, ErrUnavailable)

	err = mapError(status.Error(codes.PermissionDenied, common.MsgAccessDenied))
	assert.Equal(t, common.MsgAccessDenied, err.Error())
	assert.False(t, errors.Is(err, ErrUnauthorized))
}
