package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/ui"
)

func newSweepCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Spawn the next instance of every due recurring task",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.SweepRecurring(ctx, a.cfg.UserID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, t := range res.Spawned {
				fmt.Fprintf(out, "%s %s %s\n", ui.IconLoop, ui.Muted.Render(shortID(t.ID)), t.Name)
			}
			summary := fmt.Sprintf("%d due, %d spawned", res.Checked, len(res.Spawned))
			if res.Skipped > 0 {
				summary += fmt.Sprintf(", %d skipped", res.Skipped)
				fmt.Fprintln(out, ui.Warn.Render(ui.IconWarn+" "+summary))
				return nil
			}
			fmt.Fprintln(out, ui.Good.Render(ui.IconSparkle+" "+summary))
			return nil
		},
	}
	return cmd
}
