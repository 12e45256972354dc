package root

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/storage"
)

type exportDoc struct {
	ExportedAt time.Time           `yaml:"exported_at"`
	UserID     string              `yaml:"user_id"`
	Progress   engine.UserProgress `yaml:"progress"`
	Tasks      []engine.Task       `yaml:"tasks"`
	History    []exportEvent       `yaml:"history,omitempty"`
}

type exportEvent struct {
	At       time.Time `yaml:"at"`
	TaskID   string    `yaml:"task_id,omitempty"`
	OldLevel int       `yaml:"old_level"`
	NewLevel int       `yaml:"new_level"`
	OldRank  string    `yaml:"old_rank"`
	NewRank  string    `yaml:"new_rank"`
	XPGained int       `yaml:"xp_gained"`
}

func toExportEvent(e storage.LevelEvent) exportEvent {
	out := exportEvent{
		At:       e.CreatedAt,
		OldLevel: e.OldLevel,
		NewLevel: e.NewLevel,
		OldRank:  e.OldRank,
		NewRank:  e.NewRank,
		XPGained: e.XPGained,
	}
	if e.TaskID != nil {
		out.TaskID = *e.TaskID
	}
	return out
}

func newExportCmd(a *app) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export progress, tasks and history as YAML",
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
			events, err := svc.History(ctx, a.cfg.UserID, 0)
			if err != nil {
				return err
			}

			doc := exportDoc{
				ExportedAt: time.Now().UTC(),
				UserID:     a.cfg.UserID,
				Progress:   p,
				Tasks:      tasks,
			}
			for _, e := range events {
				doc.History = append(doc.History, toExportEvent(e))
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export: %w", err)
				}
				defer f.Close()
				w = f
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
