// Package cli implements the famtree command-line client. Every command
// talks to the server over gRPC; the signed-in session is cached locally
// so consecutive invocations share it.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/dmitrijs2005/famtree/internal/client/config"
	"github.com/dmitrijs2005/famtree/internal/client/services"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/spf13/cobra"
)

// session is what a command needs from the outside world.
type session struct {
	client client.Client
	auth   services.AuthService
	close  func() error
}

type App struct {
	ConfigPath string
	Addr       string
	CacheFile  string
	Timeout    time.Duration

	cfg    *config.Config
	sess   *session
	in     *bufio.Reader
	lookup func(string) (string, bool)
	dial   func(ctx context.Context, cfg *config.Config) (*session, error)
}

func dial(ctx context.Context, cfg *config.Config) (*session, error) {
	db, err := client.OpenCache(ctx, cfg.CacheFile)
	if err != nil {
		return nil, fmt.Errorf("opening session cache: %w", err)
	}
	c, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{
		client: c,
		auth:   services.NewAuthService(c, db),
		close: func() error {
			return errors.Join(c.Close(), db.Close())
		},
	}, nil
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{
		in:     bufio.NewReader(os.Stdin),
		lookup: os.LookupEnv,
		dial:   dial,
	})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "famtree",
		Short:         "Collaborative family tree client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Create an account and start a tree
  famtree register --name Alice
  famtree person add "Alice Martin" --dob 1980-04-02 --gender female

  # Share it
  famtree invite send bob@example.com

  # Follow the live view
  famtree watch
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(app.ConfigPath, app.lookup)
		if err != nil {
			return writeErr(cmd, err)
		}
		flags := cmd.Flags()
		if flags.Changed("addr") {
			cfg.ServerEndpointAddr = app.Addr
		}
		if flags.Changed("cache") {
			cfg.CacheFile = app.CacheFile
		}
		if flags.Changed("timeout") {
			cfg.RequestTimeout = app.Timeout
		}
		app.cfg = cfg

		s, err := app.dial(cmd.Context(), cfg)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.sess = s
		return nil
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "", "Path to a JSON config file")
	cmd.PersistentFlags().StringVarP(&app.Addr, "addr", "a", "", "Server gRPC endpoint (host:port)")
	cmd.PersistentFlags().StringVar(&app.CacheFile, "cache", "", "Session cache file")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 0, "Per-request timeout")

	cmd.AddCommand(newPingCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newRenameCmd(app))
	cmd.AddCommand(newProfileCmd(app))
	cmd.AddCommand(newTreesCmd(app))
	cmd.AddCommand(newInviteCmd(app))
	cmd.AddCommand(newPersonCmd(app))
	cmd.AddCommand(newRelCmd(app))
	cmd.AddCommand(newWatchCmd(app))

	return cmd
}

func (app *App) close() error {
	if app.sess == nil || app.sess.close == nil {
		return nil
	}
	err := app.sess.close()
	app.sess = nil
	return err
}

// requestCtx bounds a single round trip with the configured timeout.
func (app *App) requestCtx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if app.cfg == nil || app.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, app.cfg.RequestTimeout)
}

// signedIn restores the cached session into the client.
func (app *App) signedIn(ctx context.Context) (*models.Identity, error) {
	return app.sess.auth.Restore(ctx)
}

// withSession runs fn with a request context and a restored session.
func (app *App) withSession(cmd *cobra.Command, fn func(ctx context.Context, c client.Client) error) error {
	ctx, cancel := app.requestCtx(cmd)
	defer cancel()
	if _, err := app.signedIn(ctx); err != nil {
		return writeErr(cmd, err)
	}
	if err := fn(ctx, app.sess.client); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

// reportedError marks an error already printed by writeErr.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// IsReported tells main whether err still needs printing. Usage and flag
// errors from cobra itself are not reported.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err.Error())
	return reportedError{err}
}

func writeOut(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }

func newPingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.requestCtx(cmd)
			defer cancel()
			if err := app.sess.client.Ping(ctx); err != nil {
				return writeErr(cmd, err)
			}
			writeOut(cmd, "OK\n")
			return nil
		},
	}
}
