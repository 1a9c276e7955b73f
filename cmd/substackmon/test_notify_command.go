package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"substackmon/internal/postmark"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test email through Postmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := postmark.NewClient(postmark.Config{
				ServerToken:    cfg.Postmark.ServerToken,
				Sender:         cfg.Postmark.Sender,
				Recipients:     cfg.Postmark.Recipients,
				MessageStream:  cfg.Postmark.MessageStream,
				RequestTimeout: cfg.Postmark.RequestTimeout,
			})

			body := postmark.HTMLBody(fmt.Sprintf("Test notification from substackmon at %s.", time.Now().Format(time.RFC1123)))
			if err := client.Deliver(cmd.Context(), "substackmon test notification", body); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
