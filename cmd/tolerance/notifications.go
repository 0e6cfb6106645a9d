package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/tolerance-rules/internal/model"
)

type notificationList []model.Notification

func (notificationList) headers() []string {
	return []string{"ID", "TYPE", "CREATED", "TITLE", "MESSAGE", "LINK"}
}

func (l notificationList) rows() [][]string {
	rows := make([][]string, len(l))
	for i, n := range l {
		link, _ := n.Metadata["navigationPath"].(string)
		rows[i] = []string{
			n.ID,
			string(n.Type),
			n.CreatedAt.Format("2006-01-02 15:04"),
			n.Title,
			n.Message,
			link,
		}
	}
	return rows
}

func notificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Read in-app notifications",
	}
	cmd.AddCommand(notificationsListCmd(a), notificationsReadCmd(a))
	return cmd
}

func notificationsListCmd(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's unread notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.store.GetUnreadNotifications(cmd.Context(), user)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), a.outputFmt, notificationList(list))
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func notificationsReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notification %s marked read\n", args[0])
			return nil
		},
	}
}
