package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/dmitrijs2005/famtree/internal/api"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/docstore/memstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/auth"
	"github.com/dmitrijs2005/famtree/internal/server/config"
	"github.com/dmitrijs2005/famtree/internal/server/events"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/server/services"
	"github.com/dmitrijs2005/famtree/internal/server/view"
	"github.com/dmitrijs2005/famtree/internal/stream"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// newServices wires the full core over an in-memory store.
func newServices(t *testing.T) Services {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := stream.NewLoop()
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})

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

	return Services{
		Identity:    identity,
		Profiles:    profiles,
		Access:      access,
		Invitations: invites,
		Graph:       graph,
		Portraits:   services.NewPortraitService(store, m, access, graph, cfg, log),
		Composer:    view.NewComposer(loop, access, invites, graph),
		Sessions:    sessions,
	}
}

type testClient struct {
	t    *testing.T
	conn *grpc.ClientConn
}

// startServer serves the core over an in-memory listener.
func startServer(t *testing.T) *testClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := NewGRPCServer("bufnet", logging.Nop{}, newServices(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return &testClient{t: t, conn: conn}
}

func withToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)
}

// call invokes method with req and decodes the reply into resp.
func (c *testClient) call(token, method string, req, resp any) error {
	c.t.Helper()

	in, err := api.ToStruct(req)
	require.NoError(c.t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &structpb.Struct{}
	if err := c.conn.Invoke(withToken(ctx, token), api.FullMethod(method), in, out); err != nil {
		return err
	}
	if resp != nil {
		require.NoError(c.t, api.FromStruct(out, resp))
	}
	return nil
}

func (c *testClient) register(email, password string) api.SessionResponse {
	c.t.Helper()
	var s api.SessionResponse
	require.NoError(c.t, c.call("", api.MethodRegister, api.CredentialsRequest{Email: email, Password: password}, &s))
	require.NotEmpty(c.t, s.AccessToken)
	return s
}
