package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crach-ad/crachToDo/internal/engine"
)

// RunBoard opens the live task board for userID until the user quits or ctx
// is cancelled.
func RunBoard(ctx context.Context, svc *engine.Service, userID string, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := svc.EnsureProfile(ctx, userID); err != nil {
		return err
	}
	m := newBoardModel(ctx, svc, userID)
	p := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
