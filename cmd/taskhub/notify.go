package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastygo/taskhub/domain"
)

func newNotifyCmd(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:       "notify <due_today|overdue|summary>",
		Short:     "Sync, evaluate and dispatch one notification",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.NotificationDueToday), string(domain.NotificationOverdue), string(domain.NotificationSummary)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := domain.NotificationKind(args[0])
			if !kind.Valid() {
				return fmt.Errorf("unknown notification kind %q", args[0])
			}
			ctx := cmd.Context()
			c.syncAll(ctx)

			var (
				n   domain.Notification
				err error
			)
			if dryRun {
				n, err = c.app.Notifier.Preview(ctx, kind)
			} else {
				n, err = c.app.Notifier.Notify(ctx, kind)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s at %s\n", n.Kind, n.GeneratedAt.Format("2006-01-02 15:04 MST"))
			renderTasks(c, n.Tasks)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the notification without dispatching it")
	return cmd
}
