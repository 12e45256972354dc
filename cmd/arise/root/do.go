package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/ui"
)

func newDoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "do <id>",
		Short: "Complete a task and collect its XP",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("id is required")
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

			id, err := a.resolveTaskID(ctx, svc, args[0])
			if err != nil {
				return err
			}
			t, err := svc.GetTask(ctx, a.cfg.UserID, id)
			if err != nil {
				return err
			}
			res, err := svc.CompleteTask(ctx, a.cfg.UserID, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s\n",
				ui.Good.Render(ui.IconDone+" Completed"),
				t.Name,
				ui.Gold.Render(fmt.Sprintf("+%d XP", res.XPAwarded)),
			)
			if res.LeveledUp {
				fmt.Fprintf(out, "%s %s %s\n", ui.IconBolt, ui.BadgeLevelUp,
					ui.LabelValue("Level", fmt.Sprintf("%d → %d", res.Before.Level, res.After.Level)))
			}
			if res.RankChanged() {
				fmt.Fprintf(out, "%s %s %s → %s\n", ui.IconCrown, ui.BadgeRankUp,
					ui.RankText(*res.PreviousRank), ui.RankText(res.After.Rank))
			}
			fmt.Fprintln(out, ui.Muted.Render(fmt.Sprintf("XP %d/%d", res.After.CurrentXP, res.After.RequiredXP))+" "+
				ui.XPBar(res.After.CurrentXP, res.After.RequiredXP, 20))
			if res.Spawned != nil && res.Spawned.Recurring != nil && res.Spawned.Recurring.NextDue != nil {
				fmt.Fprintf(out, "%s next instance %s, due %s\n", ui.IconLoop,
					ui.Muted.Render(shortID(res.Spawned.ID)),
					res.Spawned.Recurring.NextDue.Format("Mon Jan 2 15:04"))
			}
			return nil
		},
	}

	return cmd
}
