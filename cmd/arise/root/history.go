package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/storage"
	"github.com/crach-ad/crachToDo/internal/ui"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	var rankFilter string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show level-up history",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rank engine.Rank
			if rankFilter != "" {
				r, err := engine.ParseRank(rankFilter)
				if err != nil {
					return err
				}
				rank = r
			}

			ctx := context.Background()
			svc, cleanup, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			events, err := svc.History(ctx, a.cfg.UserID, limit)
			if err != nil {
				return err
			}
			if rank != "" {
				events = rankUps(events, rank)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconTrophy, "Level History"))
			if len(events) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(no level-ups yet)"))
				return nil
			}
			loc := svc.Location()
			for _, e := range events {
				line := fmt.Sprintf("%s level %d → %d %s",
					ui.Muted.Render(e.CreatedAt.In(loc).Format("2006-01-02 15:04")),
					e.OldLevel, e.NewLevel,
					ui.Gold.Render(fmt.Sprintf("(+%d XP)", e.XPGained)),
				)
				if e.OldRank != e.NewRank {
					line += fmt.Sprintf(" %s %s → %s", ui.BadgeRankUp, e.OldRank, e.NewRank)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max events (0 = all)")
	cmd.Flags().StringVar(&rankFilter, "rank", "", "Only show the level-up that reached this rank (E..SSS)")
	return cmd
}

// rankUps keeps the events that moved the rank to rank.
func rankUps(events []storage.LevelEvent, rank engine.Rank) []storage.LevelEvent {
	var out []storage.LevelEvent
	for _, e := range events {
		if e.OldRank != e.NewRank && engine.Rank(e.NewRank) == rank {
			out = append(out, e)
		}
	}
	return out
}
