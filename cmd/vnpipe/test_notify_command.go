package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vnpipe/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.notifier()
			if notifications.IsNoop(svc) {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications not configured (set discord.token and discord.channel_id)")
				return nil
			}
			if err := svc.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
