package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/fastygo/taskhub/domain"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		statuses   []string
		priorities []string
		tags       []string
		sources    []string
		assignee   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Sync, then list tasks matching the filter flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.TaskFilter{Tags: tags, Assignee: assignee}
			for _, s := range statuses {
				filter.Statuses = append(filter.Statuses, domain.Status(s))
			}
			for _, p := range priorities {
				filter.Priorities = append(filter.Priorities, domain.Priority(p))
			}
			for _, s := range sources {
				filter.Sources = append(filter.Sources, domain.Source(s))
			}

			ctx := cmd.Context()
			c.syncAll(ctx)
			tasks, err := c.app.Tasks.ListTasks(ctx, filter)
			if err != nil {
				return err
			}
			renderTasks(c, tasks)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "filter by status (todo, in_progress, done, blocked)")
	cmd.Flags().StringSliceVarP(&priorities, "priority", "p", nil, "filter by priority (low, medium, high, urgent)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "filter by tag; any match counts")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "filter by source (team, personal, manual)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "filter by assignee")
	return cmd
}

func renderTasks(c *cli, tasks []domain.Task) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgGreen.Sprint("ID"),
		text.FgGreen.Sprint(text.Bold.Sprint("Title")),
		text.FgGreen.Sprint("Status"),
		text.FgGreen.Sprint("Priority"),
		text.FgGreen.Sprint("Due"),
		text.FgGreen.Sprint("Tags"),
		text.FgGreen.Sprint("Source"),
	})
	for _, task := range tasks {
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02")
		}
		t.AppendRow(table.Row{
			task.ID,
			task.Title,
			statusColor(task.Status).Sprint(task.Status),
			task.Priority,
			due,
			strings.Join(task.Tags, ", "),
			task.Source,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(tasks)})
	t.Render()
}

func statusColor(s domain.Status) text.Colors {
	switch s {
	case domain.StatusDone:
		return text.Colors{text.FgHiBlack}
	case domain.StatusInProgress:
		return text.Colors{text.FgCyan}
	case domain.StatusBlocked:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgYellow}
	}
}
