package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/ui"
)

func newStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, XP and rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := svc.EnsureProfile(ctx, a.cfg.UserID)
			if err != nil {
				return err
			}
			tasks, err := svc.ListTasks(ctx, a.cfg.UserID)
			if err != nil {
				return err
			}
			pending, recurring := 0, 0
			for _, t := range tasks {
				if !t.Completed {
					pending++
				}
				if t.Recurring != nil && !t.Completed {
					recurring++
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconSparkle, "Hunter Status"))
			fmt.Fprintln(out, ui.LabelValue("User", a.cfg.UserID))
			fmt.Fprintln(out, ui.LabelValue("Rank", ui.RankText(p.Rank)))
			fmt.Fprintln(out, ui.LabelValue("Level", p.Level))
			fmt.Fprintln(out, ui.LabelValue("XP", fmt.Sprintf("%d/%d %s (%d to go)",
				p.CurrentXP, p.RequiredXP, ui.XPBar(p.CurrentXP, p.RequiredXP, 20), p.RequiredXP-p.CurrentXP)))
			if next, ok := p.Rank.Next(); ok {
				lvl := (p.Level/engine.RankUpEvery + 1) * engine.RankUpEvery
				fmt.Fprintln(out, ui.LabelValue("Next rank", fmt.Sprintf("%s at level %d", ui.RankText(next), lvl)))
			} else {
				fmt.Fprintln(out, ui.LabelValue("Next rank", ui.Gold.Render(ui.IconCrown+" max rank")))
			}
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, ui.LabelValue("Pending", fmt.Sprintf("%d (%d recurring)", pending, recurring)))
			return nil
		},
	}
	return cmd
}
