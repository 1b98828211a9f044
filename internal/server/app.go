// Package server wires the famtree core together and runs it: the event
// loop, the document store selected by configuration, the optional Redis and
// RabbitMQ collaborators and the gRPC endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/docstore/memstore"
	"github.com/dmitrijs2005/famtree/internal/docstore/redisfeed"
	"github.com/dmitrijs2005/famtree/internal/docstore/sqlstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/auth"
	"github.com/dmitrijs2005/famtree/internal/server/config"
	"github.com/dmitrijs2005/famtree/internal/server/events"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/famtree/internal/server/services"
	"github.com/dmitrijs2005/famtree/internal/server/view"
	"github.com/dmitrijs2005/famtree/internal/stream"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/famtree/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	loop      *stream.Loop
	store     *docstore.Store
	sql       *sqlstore.Backend
	feed      *redisfeed.Feed
	rdb       redis.UniversalClient
	publisher events.Publisher
	services  gs.Services
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(c, os.Stdout)
}

func newApp(c *config.Config, out io.Writer) (*App, error) {
	app := &App{
		config: c,
		logger: logging.NewJSON(out, c.LogLevel),
		loop:   stream.NewLoop(),
	}

	if c.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	}

	if err := app.initStore(context.Background()); err != nil {
		app.close()
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app.publisher = events.Nop{}
	if c.AMQPURL != "" {
		p, err := events.NewRabbitPublisher(c.AMQPURL, c.AMQPExchange)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("amqp init error: %w", err)
		}
		app.publisher = p
	}

	var revoked auth.RevocationList = auth.NewMemoryRevocationList()
	if app.rdb != nil {
		revoked = auth.NewRedisRevocationList(app.rdb)
	}

	m := repomanager.NewDocRepositoryManager()
	profiles := services.NewProfileService(app.store, m, app.logger)
	access := services.NewAccessService(app.store, m, profiles, app.logger)
	invites := services.NewInvitationService(app.store, m, profiles, app.publisher, app.logger)
	graph := services.NewGraphService(app.store, m, access, app.logger)

	identity := services.NewIdentityService(app.store, m, profiles, auth.NewHasher(nil), revoked, c, app.logger)
	sessions := view.NewRegistry(app.loop, profiles, app.logger)
	identity.OnSignOut(sessions.SignOut)

	app.services = gs.Services{
		Identity:    identity,
		Profiles:    profiles,
		Access:      access,
		Invitations: invites,
		Graph:       graph,
		Portraits:   services.NewPortraitService(app.store, m, access, graph, c, app.logger),
		Composer:    view.NewComposer(app.loop, access, invites, graph),
		Sessions:    sessions,
	}
	return app, nil
}

// initStore selects the document store backend. SQL backends publish their
// commits on the Redis change feed when one is configured.
func (app *App) initStore(ctx context.Context) error {
	if app.config.StoreBackend == config.StoreMemory {
		app.store = docstore.New(memstore.New(app.loop))
		return nil
	}

	dialect, err := sqlstore.DialectByName(app.config.StoreBackend)
	if err != nil {
		return err
	}

	opts := []sqlstore.Option{sqlstore.WithLogger(app.logger)}
	if app.rdb != nil {
		app.feed = redisfeed.New(app.rdb, app.config.RedisChannel, app.logger)
		opts = append(opts, sqlstore.WithFeed(app.feed))
	}

	b, err := sqlstore.Open(ctx, dialect, app.config.DatabaseDSN, app.loop, opts...)
	if err != nil {
		return err
	}
	app.sql = b
	app.store = docstore.New(b)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startChangeFeed refreshes local watches with commits made by other
// server processes.
func (app *App) startChangeFeed(ctx context.Context) {
	if app.feed == nil {
		return
	}
	if err := app.feed.Listen(ctx, app.sql.Refresh); err != nil {
		app.logger.Error(ctx, "change feed stopped", "error", err)
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := app.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, "event loop stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		app.startChangeFeed(ctx)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	ctx := context.Background()
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Warn(ctx, "closing publisher", "error", err)
		}
	}
	if app.sql != nil {
		if err := app.sql.Close(); err != nil {
			app.logger.Warn(ctx, "closing store", "error", err)
		}
	}
	if app.rdb != nil {
		_ = app.rdb.Close()
	}
}
