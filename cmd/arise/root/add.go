package root

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/ui"
)

func newAddCmd(a *app) *cobra.Command {
	var priority string
	var desc string
	var recur string
	var interval int
	var days string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task (optionally recurring)",
		Example: `  arise add "Read 20 pages"
  arise add "Gym" --recur weekly --days mon,wed,fri -p high
  arise add "Water plants" --recur custom --interval 3`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("name is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			in := engine.CreateTaskInput{
				Name:        args[0],
				Description: desc,
				Priority:    priority,
			}
			if strings.TrimSpace(recur) != "" {
				ri := engine.RecurrenceInput{Type: recur, Interval: interval}
				if days != "" {
					d, err := engine.ParseWeekdays(days)
					if err != nil {
						return err
					}
					ri.Days = d
				}
				in.Recurring = &ri
			} else if interval != 0 || days != "" {
				return errors.New("--interval and --days require --recur")
			}

			t, err := svc.AddTask(ctx, a.cfg.UserID, in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s %s\n",
				ui.Good.Render(ui.IconPlus+" Added"),
				ui.Muted.Render(shortID(t.ID)),
				t.Name,
				ui.Muted.Render(fmt.Sprintf("(%s, %d XP)", t.Priority, engine.TaskXP(t.Priority, t.Recurring != nil))),
			)
			if t.Recurring != nil && t.Recurring.NextDue != nil {
				fmt.Fprintf(out, "%s %s, next due %s\n",
					ui.IconLoop,
					ui.RecurrenceText(t.Recurring),
					t.Recurring.NextDue.Format("Mon Jan 2 15:04"),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&priority, "priority", "p", "normal", "Priority (low|normal|high|urgent)")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringVarP(&recur, "recur", "r", "", "Recurrence (daily|weekly|monthly|custom)")
	cmd.Flags().IntVar(&interval, "interval", 0, "Days between instances (custom)")
	cmd.Flags().StringVar(&days, "days", "", "Weekdays for weekly, e.g. mon,wed or 1,3")

	return cmd
}
