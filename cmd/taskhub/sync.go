package main

import (
	"errors"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/fastygo/taskhub/domain"
)

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "sync [source]",
		Short:     "Refresh tasks from one or every configured Notion database",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(domain.SourceTeam), string(domain.SourcePersonal)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			counts := map[domain.Source]int{}
			var err error
			if len(args) == 1 {
				source := domain.Source(args[0])
				var n int
				n, err = c.app.Tasks.Sync(ctx, source)
				if err == nil {
					counts[source] = n
				}
			} else {
				if len(c.app.Tasks.Sources()) == 0 {
					return errors.New("no Notion database is configured")
				}
				counts, err = c.app.Tasks.SyncAll(ctx)
			}

			t := table.NewWriter()
			t.SetOutputMirror(c.out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{text.FgGreen.Sprint("Source"), text.FgGreen.Sprint("Tasks")})
			for _, source := range []domain.Source{domain.SourceTeam, domain.SourcePersonal} {
				if n, ok := counts[source]; ok {
					t.AppendRow(table.Row{source, n})
				}
			}
			if len(counts) > 0 {
				t.Render()
			}
			return err
		},
	}
}
