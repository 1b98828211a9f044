package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type profileFlags struct {
	name, firstName, lastName, birthDate, birthPlace, residence string
	gender, nationality, phone, profession, bio                  string
}

func (f *profileFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.name, "name", "n", "", "Display name")
	fs.StringVar(&f.firstName, "first-name", "", "First name")
	fs.StringVar(&f.lastName, "last-name", "", "Last name")
	fs.StringVar(&f.birthDate, "birth-date", "", "Date of birth (YYYY-MM-DD)")
	fs.StringVar(&f.birthPlace, "birth-place", "", "Place of birth")
	fs.StringVar(&f.residence, "residence", "", "Current residence")
	fs.StringVar(&f.gender, "gender", "", "male, female or other")
	fs.StringVar(&f.nationality, "nationality", "", "Nationality")
	fs.StringVar(&f.phone, "phone", "", "Phone number, 6 to 15 digits with an optional leading +")
	fs.StringVar(&f.profession, "profession", "", "Profession")
	fs.StringVar(&f.bio, "bio", "", "A few words about yourself")
}

// text maps a changed flag to a patch field. An empty value clears it.
func text(fs *pflag.FlagSet, name, v string) models.Optional[string] {
	if !fs.Changed(name) {
		return models.Optional[string]{}
	}
	return models.FromPtr(optional(v))
}

func (f *profileFlags) patch(fs *pflag.FlagSet) models.ProfilePatch {
	p := models.ProfilePatch{
		FirstName:        text(fs, "first-name", f.firstName),
		LastName:         text(fs, "last-name", f.lastName),
		BirthDate:        text(fs, "birth-date", f.birthDate),
		BirthPlace:       text(fs, "birth-place", f.birthPlace),
		CurrentResidence: text(fs, "residence", f.residence),
		Nationality:      text(fs, "nationality", f.nationality),
		PhoneNumber:      text(fs, "phone", f.phone),
		Profession:       text(fs, "profession", f.profession),
		BioInfo:          text(fs, "bio", f.bio),
	}
	if fs.Changed("name") {
		p.DisplayName = models.Some(f.name)
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

func newProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your personal details",
	}
	cmd.AddCommand(newProfileShowCmd(app), newProfileEditCmd(app))
	return cmd
}

func newProfileShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				return printProfile(ctx, cmd, c)
			})
		},
	}
}

func newProfileEditCmd(app *App) *cobra.Command {
	var f profileFlags
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change personal details; an empty value clears a field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := f.patch(cmd.Flags())
			if len(patch.Data()) == 0 {
				return writeErr(cmd, errors.New("nothing to change"))
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				if err := c.UpdateProfile(ctx, patch); err != nil {
					return err
				}
				writeOut(cmd, "Profile updated\n")
				return nil
			})
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func printProfile(ctx context.Context, cmd *cobra.Command, c client.Client) error {
	p, err := c.GetProfile(ctx)
	if err != nil {
		return err
	}
	w := table(cmd)
	row(w, "UID", p.UID)
	row(w, "EMAIL", p.Email)
	row(w, "NAME", p.DisplayName)
	row(w, "ACTIVE TREE", p.ActiveTreeUID)
	row(w, "FIRST NAME", deref(p.FirstName))
	row(w, "LAST NAME", deref(p.LastName))
	row(w, "BORN", deref(p.BirthDate))
	row(w, "BIRTH PLACE", deref(p.BirthPlace))
	row(w, "RESIDENCE", deref(p.CurrentResidence))
	if p.Gender != nil {
		row(w, "GENDER", string(*p.Gender))
	} else {
		row(w, "GENDER", "-")
	}
	row(w, "NATIONALITY", deref(p.Nationality))
	row(w, "PHONE", deref(p.PhoneNumber))
	row(w, "PROFESSION", deref(p.Profession))
	row(w, "BIO", deref(p.BioInfo))
	return w.Flush()
}
