package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/fastygo/taskhub/internal/scheduler"
)

func newJobsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(c.out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{
				text.FgGreen.Sprint("Job"),
				text.FgGreen.Sprint("Schedule"),
				text.FgGreen.Sprint("Description"),
			})
			for _, state := range c.app.Scheduler.States() {
				t.AppendRow(table.Row{state.Name, state.Schedule, state.Description})
			}
			t.Render()
			fmt.Fprintf(c.out, "timezone: %s, scheduler enabled: %t\n",
				c.app.Config.Scheduler.Timezone, c.app.Config.Scheduler.Enabled)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run one job now and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := c.app.Scheduler.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state, err := c.app.Scheduler.State(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s: %s\n", state.Name, outcome)
			if outcome == scheduler.OutcomeFailed {
				return fmt.Errorf("%s failed: %s", state.Name, state.LastError)
			}
			return nil
		},
	})
	return cmd
}
