package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/ui"
)

func newEditCmd(a *app) *cobra.Command {
	var name, desc, priority string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename a task or change its description or priority",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("id is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var in engine.UpdateTaskInput
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("desc") {
				in.Description = &desc
			}
			if cmd.Flags().Changed("priority") {
				in.Priority = &priority
			}
			if in.Name == nil && in.Description == nil && in.Priority == nil {
				return errors.New("nothing to change: pass --name, --desc or --priority")
			}

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
			if err := svc.UpdateTask(ctx, a.cfg.UserID, id, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Good.Render(ui.IconScroll+" Updated"), ui.Muted.Render(shortID(id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "New description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority")
	return cmd
}
