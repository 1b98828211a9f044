package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/render"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type relFlags struct {
	kind, label, arrows, color string
	dashes                     bool
}

func (f *relFlags) bind(fs *pflag.FlagSet, withType bool) {
	if withType {
		fs.StringVarP(&f.kind, "type", "t", "", "Relationship type ("+joinTypes()+")")
	}
	fs.StringVarP(&f.label, "label", "l", "", "Edge label (defaults to the type)")
	fs.StringVar(&f.arrows, "arrows", "", "Arrow placement: to, from or middle")
	fs.BoolVar(&f.dashes, "dashes", false, "Draw the edge dashed")
	fs.StringVar(&f.color, "color", "", "Edge color; empty clears it")
}

func joinTypes() string {
	names := make([]string, len(models.RelationshipTypes))
	for i, t := range models.RelationshipTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func (f *relFlags) patch(fs *pflag.FlagSet) models.RelationshipPatch {
	var p models.RelationshipPatch
	if fs.Changed("type") {
		p.Type = models.Some(models.RelationshipType(f.kind))
	}
	if fs.Changed("label") {
		p.Label = models.Some(f.label)
	}
	if fs.Changed("arrows") {
		p.Arrows = models.Some(f.arrows)
	}
	if fs.Changed("dashes") {
		p.Dashes = models.Some(f.dashes)
	}
	if fs.Changed("color") {
		p.Color = models.FromPtr(optional(f.color))
	}
	return p
}

func newRelCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rel",
		Aliases: []string{"relationship", "relationships"},
		Short:   "Edit the relationships of the active tree",
	}
	cmd.AddCommand(newRelAddCmd(app))
	cmd.AddCommand(newRelEditCmd(app))
	cmd.AddCommand(newRelRemoveCmd(app))
	cmd.AddCommand(newRelListCmd(app))
	return cmd
}

func newRelAddCmd(app *App) *cobra.Command {
	var f relFlags
	cmd := &cobra.Command{
		Use:   "add <from-id> <to-id> <type>",
		Short: "Connect two people",
		Long:  "Connect two people. Types: " + joinTypes() + ".",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.Relationship{
				From:   args[0],
				To:     args[1],
				Type:   models.RelationshipType(args[2]),
				Label:  f.label,
				Arrows: f.arrows,
				Dashes: f.dashes,
				Color:  optional(f.color),
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				id, err := c.Dispatch(ctx, render.Intent{Kind: render.AddEdge, Relationship: &r})
				if err != nil {
					return err
				}
				writeOut(cmd, "%s\n", id)
				return nil
			})
		},
	}
	f.bind(cmd.Flags(), false)
	return cmd
}

func newRelEditCmd(app *App) *cobra.Command {
	var f relFlags
	cmd := &cobra.Command{
		Use:   "edit <relationship-id>",
		Short: "Change the given fields of a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := f.patch(cmd.Flags())
			if len(patch.Data()) == 0 {
				return writeErr(cmd, errors.New("nothing to change, pass at least one field flag"))
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				_, err := c.Dispatch(ctx, render.Intent{Kind: render.EditEdge, ID: args[0], RelationshipPatch: &patch})
				if err != nil {
					return err
				}
				writeOut(cmd, "Updated %s\n", args[0])
				return nil
			})
		},
	}
	f.bind(cmd.Flags(), true)
	return cmd
}

func newRelRemoveCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <relationship-id>",
		Aliases: []string{"remove"},
		Short:   "Delete a relationship",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !Confirm(app.in, "Delete relationship "+args[0]+"?", cmd.ErrOrStderr()) {
				writeOut(cmd, "Cancelled\n")
				return nil
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				if _, err := c.Dispatch(ctx, render.Intent{Kind: render.DeleteEdge, ID: args[0]}); err != nil {
					return err
				}
				writeOut(cmd, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newRelListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the relationships of the active tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				rels, err := c.ListRelationships(ctx)
				if err != nil {
					return err
				}
				w := table(cmd)
				row(w, "ID", "FROM", "TO", "LABEL", "ARROWS", "DASHED")
				for _, r := range rels {
					e := render.EdgeOf(r)
					row(w, e.ID, e.From, e.To, e.Label, e.Arrows, strconv.FormatBool(e.Dashes))
				}
				return w.Flush()
			})
		},
	}
}
