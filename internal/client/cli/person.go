package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/dmitrijs2005/famtree/internal/filex"
	"github.com/dmitrijs2005/famtree/internal/netx"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/render"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type personFlags struct {
	label, shape, color, dob, gender string
}

func (f *personFlags) bind(fs *pflag.FlagSet, withLabel bool) {
	if withLabel {
		fs.StringVarP(&f.label, "label", "l", "", "Name shown on the node")
	}
	fs.StringVar(&f.shape, "shape", "", "Node shape ("+joinShapes()+")")
	fs.StringVar(&f.color, "color", "", "Node color; empty clears it")
	fs.StringVar(&f.dob, "dob", "", "Date of birth (YYYY-MM-DD); empty clears it")
	fs.StringVar(&f.gender, "gender", "", "male, female or other; empty clears it")
}

func joinShapes() string {
	names := make([]string, len(models.Shapes))
	for i, s := range models.Shapes {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (f *personFlags) person(label string) models.Person {
	p := models.Person{
		Label: label,
		Shape: models.Shape(f.shape),
		Color: optional(f.color),
		DOB:   optional(f.dob),
	}
	if f.gender != "" {
		g := models.Gender(f.gender)
		p.Gender = &g
	}
	return p
}

// patch sets only the fields whose flags were given. An empty value clears
// a nullable field.
func (f *personFlags) patch(fs *pflag.FlagSet) models.PersonPatch {
	var p models.PersonPatch
	if fs.Changed("label") {
		p.Label = models.Some(f.label)
	}
	if fs.Changed("shape") {
		p.Shape = models.Some(models.Shape(f.shape))
	}
	if fs.Changed("color") {
		p.Color = models.FromPtr(optional(f.color))
	}
	if fs.Changed("dob") {
		p.DOB = models.FromPtr(optional(f.dob))
	}
	if fs.Changed("gender") {
		if f.gender == "" {
			p.Gender = models.Null[models.Gender]()
		} else {
			p.Gender = models.Some(models.Gender(f.gender))
		}
	}
	return p
}

func newPersonCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "person",
		Aliases: []string{"people"},
		Short:   "Edit the people of the active tree",
	}
	cmd.AddCommand(newPersonAddCmd(app))
	cmd.AddCommand(newPersonEditCmd(app))
	cmd.AddCommand(newPersonRemoveCmd(app))
	cmd.AddCommand(newPersonListCmd(app))
	cmd.AddCommand(newPersonPortraitCmd(app))
	return cmd
}

func newPersonAddCmd(app *App) *cobra.Command {
	var f personFlags
	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Add a person to the active tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := f.person(strings.Join(args, " "))
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				id, err := c.Dispatch(ctx, render.Intent{Kind: render.AddNode, Person: &p})
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

func newPersonEditCmd(app *App) *cobra.Command {
	var f personFlags
	cmd := &cobra.Command{
		Use:   "edit <person-id>",
		Short: "Change the given fields of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := f.patch(cmd.Flags())
			if len(patch.Data()) == 0 {
				return writeErr(cmd, errors.New("nothing to change, pass at least one field flag"))
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				_, err := c.Dispatch(ctx, render.Intent{Kind: render.EditNode, ID: args[0], PersonPatch: &patch})
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

func newPersonRemoveCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <person-id>",
		Aliases: []string{"remove"},
		Short:   "Delete a person",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !Confirm(app.in, "Delete person "+args[0]+"?", cmd.ErrOrStderr()) {
				writeOut(cmd, "Cancelled\n")
				return nil
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				if _, err := c.Dispatch(ctx, render.Intent{Kind: render.DeleteNode, ID: args[0]}); err != nil {
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

func newPersonListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the people of the active tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				people, err := c.ListPeople(ctx)
				if err != nil {
					return err
				}
				w := table(cmd)
				row(w, "ID", "LABEL", "SHAPE", "DOB", "GENDER")
				for _, p := range people {
					gender := "-"
					if p.Gender != nil {
						gender = string(*p.Gender)
					}
					row(w, p.ID, p.Label, string(p.WithDefaults().Shape), deref(p.DOB), gender)
				}
				return w.Flush()
			})
		},
	}
}

// maxPortraitSize bounds portrait uploads.
const maxPortraitSize = 5 << 20

func newPersonPortraitCmd(app *App) *cobra.Command {
	var upload string
	cmd := &cobra.Command{
		Use:   "portrait <person-id>",
		Short: "Print a portrait download URL, or upload one with --upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if upload == "" {
				return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
					url, err := c.PortraitURL(ctx, args[0])
					if err != nil {
						return err
					}
					writeOut(cmd, "%s\n", url)
					return nil
				})
			}

			data, contentType, err := filex.ReadImage(upload, maxPortraitSize)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				key, url, err := c.PortraitUploadURL(ctx, args[0])
				if err != nil {
					return err
				}
				if err := netx.UploadPresigned(ctx, url, data, contentType); err != nil {
					return err
				}
				writeOut(cmd, "Uploaded %s\n", key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&upload, "upload", "", "Image file to upload as the portrait")
	return cmd
}
