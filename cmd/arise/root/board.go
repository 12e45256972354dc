package root

import (
	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/tui"
)

func newBoardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the live TUI board",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.RunBoard(ctx, svc, a.cfg.UserID, cmd.OutOrStdout())
		},
	}

	return cmd
}
