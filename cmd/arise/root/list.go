package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/ui"
)

func newListCmd(a *app) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := svc.ListTasks(ctx, a.cfg.UserID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconScroll, "Tasks"))
			shown := 0
			for _, t := range tasks {
				if pending && t.Completed {
					continue
				}
				shown++
				line := fmt.Sprintf("%s %s %s [%s] %s",
					ui.Muted.Render(shortID(t.ID)),
					ui.KindIcon(t.Recurring != nil),
					t.Name,
					ui.PriorityText(t.Priority),
					ui.StatusText(t.Completed),
				)
				if t.Recurring != nil {
					line += " " + ui.Muted.Render(ui.RecurrenceText(t.Recurring))
					if t.Recurring.NextDue != nil {
						line += ui.Muted.Render(", next " + t.Recurring.NextDue.Format("Mon Jan 2 15:04"))
					}
				}
				fmt.Fprintln(out, line)
			}
			if shown == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(no tasks)"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only show tasks not yet completed")
	return cmd
}
