package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/spf13/cobra"
)

// credentials prompts for whatever was not given on the command line.
func (app *App) credentials(cmd *cobra.Command, email string) (string, string, error) {
	var err error
	if email == "" {
		email, err = GetSimpleText(app.in, "Email", cmd.ErrOrStderr())
		if err != nil {
			return "", "", err
		}
	}
	password, err := GetPassword(app.in, cmd.ErrOrStderr())
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func printIdentity(cmd *cobra.Command, id *models.Identity) {
	if id.DisplayName != "" {
		writeOut(cmd, "Signed in as %s <%s>\n", id.DisplayName, id.Email)
		return
	}
	writeOut(cmd, "Signed in as %s\n", id.Email)
}

func newRegisterCmd(app *App) *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := app.credentials(cmd, email)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.requestCtx(cmd)
			defer cancel()
			id, err := app.sess.auth.Register(ctx, email, password, name)
			if err != nil {
				return writeErr(cmd, err)
			}
			printIdentity(cmd, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (defaults to the email's local part)")
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := app.credentials(cmd, email)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.requestCtx(cmd)
			defer cancel()
			id, err := app.sess.auth.Login(ctx, email, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			printIdentity(cmd, id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.requestCtx(cmd)
			defer cancel()
			if _, err := app.signedIn(ctx); err != nil {
				if errors.Is(err, client.ErrNotLoggedIn) {
					writeOut(cmd, "Not signed in\n")
					return nil
				}
				return writeErr(cmd, err)
			}
			if err := app.sess.auth.Logout(ctx); err != nil {
				return writeErr(cmd, err)
			}
			writeOut(cmd, "Signed out\n")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				return printProfile(ctx, cmd, c)
			})
		},
	}
}

func newRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <display-name>",
		Short: "Change the display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				if err := c.UpdateProfile(ctx, models.ProfilePatch{DisplayName: models.Some(name)}); err != nil {
					return err
				}
				writeOut(cmd, "Display name set to %s\n", name)
				return nil
			})
		},
	}
}
