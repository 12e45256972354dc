package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crach-ad/crachToDo/internal/storage"
)

// UpdateTaskInput carries the editable fields of a task; nil means unchanged.
// Completion is not editable here; see CompleteTask.
type UpdateTaskInput struct {
	Name        *string
	Description *string
	Priority    *string
}

// UpdateTask edits one of the owner's tasks. A new priority changes the XP the
// task will award; XP is not frozen at creation.
func (s *Service) UpdateTask(ctx context.Context, ownerID, taskID string, in UpdateTaskInput) error {
	var u storage.TaskUpdate

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name", "is required")
		}
		u.Name = &name
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		u.Description = &d
	}
	if in.Priority != nil {
		p, err := ParsePriority(*in.Priority)
		if err != nil {
			return err
		}
		ps := string(p)
		u.Priority = &ps
	}

	if err := s.tasks.Update(ctx, taskID, ownerID, u); err != nil {
		return err
	}
	s.log.Debug("task updated", zap.String("owner", ownerID), zap.String("task", taskID))
	s.broker.Publish(storage.TasksTopic(ownerID))
	return nil
}
