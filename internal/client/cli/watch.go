package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/famtree/internal/server/view"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live view of the active tree until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rctx, cancel := app.requestCtx(cmd)
			_, err := app.signedIn(rctx)
			cancel()
			if err != nil {
				return writeErr(cmd, err)
			}

			enc := json.NewEncoder(out(cmd))
			err = app.sess.client.WatchView(ctx, func(s view.Snapshot) {
				if asJSON {
					_ = enc.Encode(s)
					return
				}
				printSnapshot(cmd, s)
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print each snapshot as a JSON line")
	return cmd
}

func printSnapshot(cmd *cobra.Command, s view.Snapshot) {
	access := "read-only"
	if s.CanEdit {
		access = "editable"
	}
	writeOut(cmd, "== %s (%s)\n", s.TreeLabel, access)
	w := table(cmd)
	for _, n := range s.Nodes {
		row(w, "  node", n.ID, n.Label)
	}
	for _, e := range s.Edges {
		row(w, "  edge", e.ID, e.From+" -> "+e.To, e.Label)
	}
	_ = w.Flush()
	if len(s.PendingInvitations) > 0 {
		writeOut(cmd, "%d pending invitation(s)\n", len(s.PendingInvitations))
	}
}
