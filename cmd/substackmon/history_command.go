package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"substackmon/internal/marker"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent summary deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := marker.Open(cfg)
			if err != nil {
				return fmt.Errorf("open delivery history: %w", err)
			}
			defer store.Close() //nolint:errcheck

			deliveries, err := store.Deliveries(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(deliveries) == 0 {
				fmt.Fprintln(out, "No deliveries recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(deliveries))
			for _, d := range deliveries {
				rows = append(rows, []string{
					strconv.FormatInt(d.ID, 10),
					d.DeliveredAt.Local().Format(time.RFC3339),
					d.PostURL,
					d.Subject,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Delivered", "Post", "Subject"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of deliveries to show")
	return cmd
}
