package cli

import (
	"context"

	"github.com/dmitrijs2005/famtree/internal/client/client"
	"github.com/spf13/cobra"
)

func newInviteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invite",
		Aliases: []string{"invites"},
		Short:   "Share your tree and answer invitations",
	}
	cmd.AddCommand(newInviteSendCmd(app))
	cmd.AddCommand(newInviteListCmd(app))
	cmd.AddCommand(newInviteAnswerCmd(app, "accept"))
	cmd.AddCommand(newInviteAnswerCmd(app, "decline"))
	return cmd
}

func newInviteSendCmd(app *App) *cobra.Command {
	var person string
	cmd := &cobra.Command{
		Use:   "send <email>",
		Short: "Invite someone to view your tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var personID *string
			if cmd.Flags().Changed("person") {
				personID = &person
			}
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				id, err := c.SendInvitation(ctx, args[0], personID)
				if err != nil {
					return err
				}
				writeOut(cmd, "Invitation %s sent to %s\n", id, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&person, "person", "p", "", "Person in your tree that represents the invitee")
	return cmd
}

func newInviteListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List invitations waiting for you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				invites, err := c.ListPendingInvitations(ctx)
				if err != nil {
					return err
				}
				if len(invites) == 0 {
					writeOut(cmd, "No pending invitations\n")
					return nil
				}
				w := table(cmd)
				row(w, "ID", "FROM", "SENT")
				for _, inv := range invites {
					row(w, inv.ID, inv.OwnerEmail, inv.CreatedAt.Local().Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
}

func newInviteAnswerCmd(app *App, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <invitation-id>",
		Short: verb + " a pending invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(ctx context.Context, c client.Client) error {
				answer := c.DeclineInvitation
				if verb == "accept" {
					answer = c.AcceptInvitation
				}
				if err := answer(ctx, args[0]); err != nil {
					return err
				}
				writeOut(cmd, "Invitation %s %sd\n", args[0], verb)
				return nil
			})
		},
	}
}
