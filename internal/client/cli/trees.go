package cli

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/spf13/cobra"
)

func newTreesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trees",
		Aliases: []string{"tree"},
		Short:   "List, select and remove the trees you can access",
	}
	cmd.AddCommand(newTreesListCmd(app))
	cmd.AddCommand(newTreesSelectCmd(app))
	cmd.AddCommand(newTreesRemoveCmd(app))
	return cmd
}

func newTreesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accessible trees; the active one is starred",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				trees, err := c.ListAccessibleTrees(ctx)
				if err != nil {
					return err
				}
				w := table(cmd)
				row(w, "", "OWNER", "EMAIL", "NAME", "ACCESS")
				for _, t := range trees {
					row(w, mark(t.IsSelected), t.OwnerUID, t.OwnerEmail, deref(t.TreeName), string(t.AccessLevel))
				}
				return w.Flush()
			})
		},
	}
}

func newTreesSelectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "select <owner-uid>",
		Short: "Make a tree the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				if err := c.SetActiveTree(ctx, args[0]); err != nil {
					return err
				}
				writeOut(cmd, "Active tree: %s\n", args[0])
				return nil
			})
		},
	}
}

func newTreesRemoveCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove <owner-uid>",
		Short: "Stop following a tree shared with you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !Confirm(app.in, "Remove access to tree "+args[0]+"?", cmd.ErrOrStderr()) {
				writeOut(cmd, "Cancelled\n")
				return nil
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				if err := c.RemoveSharedTree(ctx, args[0]); err != nil {
					return err
				}
				writeOut(cmd, "Removed %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
