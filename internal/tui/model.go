package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crach-ad/crachToDo/internal/engine"
	"github.com/crach-ad/crachToDo/internal/ui"
)

type boardModel struct {
	ctx    context.Context
	svc    *engine.Service
	userID string

	taskCh     <-chan []engine.Task
	progressCh <-chan engine.UserProgress

	width  int
	height int

	progress *engine.UserProgress
	tasks    []engine.Task

	selected int
	hideDone bool

	lastLog string
	loading bool
	err     error
}

type tasksMsg struct {
	tasks []engine.Task
	ok    bool
}

type progressMsg struct {
	progress engine.UserProgress
	ok       bool
}

type completedMsg struct {
	res *engine.CompleteResult
	err error
}

type deletedMsg struct {
	name string
	err  error
}

func newBoardModel(ctx context.Context, svc *engine.Service, userID string) boardModel {
	return boardModel{
		ctx:        ctx,
		svc:        svc,
		userID:     userID,
		taskCh:     svc.SubscribeTasks(ctx, userID),
		progressCh: svc.SubscribeProgress(ctx, userID),
		loading:    true,
		lastLog:    "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(waitTasks(m.taskCh), waitProgress(m.progressCh))
}

func waitTasks(ch <-chan []engine.Task) tea.Cmd {
	return func() tea.Msg {
		ts, ok := <-ch
		return tasksMsg{tasks: ts, ok: ok}
	}
}

func waitProgress(ch <-chan engine.UserProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		return progressMsg{progress: p, ok: ok}
	}
}

func (m boardModel) completeCmd(id string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.CompleteTask(m.ctx, m.userID, id)
		return completedMsg{res: res, err: err}
	}
}

func (m boardModel) deleteCmd(t engine.Task) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.DeleteTask(m.ctx, m.userID, t.ID)
		return deletedMsg{name: t.Name, err: err}
	}
}

func (m boardModel) sweepCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.SweepRecurring(m.ctx, m.userID)
		if err != nil {
			return sweptMsg{err: err}
		}
		return sweptMsg{spawned: len(res.Spawned)}
	}
}

type sweptMsg struct {
	spawned int
	err     error
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tasksMsg:
		if !msg.ok {
			return m, nil
		}
		m.loading = false
		m.tasks = msg.tasks
		m.clampSelection()
		return m, waitTasks(m.taskCh)
	case progressMsg:
		if !msg.ok {
			return m, nil
		}
		p := msg.progress
		m.progress = &p
		return m, waitProgress(m.progressCh)
	case completedMsg:
		if msg.err != nil {
			m.lastLog = "Complete failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = completionLog(msg.res)
		return m, nil
	case deletedMsg:
		if msg.err != nil {
			m.lastLog = "Delete failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = "Deleted " + msg.name + "."
		return m, nil
	case sweptMsg:
		if msg.err != nil {
			m.lastLog = "Sweep failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = fmt.Sprintf("Swept at %s: %d spawned.", time.Now().Format("15:04:05"), msg.spawned)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			m.lastLog = "Sweeping…"
			return m, m.sweepCmd()
		case "h":
			m.hideDone = !m.hideDone
			m.clampSelection()
			return m, nil
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.visible())-1 {
				m.selected++
			}
			return m, nil
		case "c", " ":
			t := m.current()
			if t == nil {
				return m, nil
			}
			if t.Completed {
				m.lastLog = "Already done."
				return m, nil
			}
			m.lastLog = "Completing " + t.Name + "…"
			return m, m.completeCmd(t.ID)
		case "x", "delete":
			t := m.current()
			if t == nil {
				return m, nil
			}
			return m, m.deleteCmd(*t)
		}
	}
	return m, nil
}

func completionLog(res *engine.CompleteResult) string {
	s := fmt.Sprintf("+%d XP", res.XPAwarded)
	if res.LeveledUp {
		s += fmt.Sprintf(" | %s level %d → %d", ui.BadgeLevelUp, res.Before.Level, res.After.Level)
	}
	if res.RankChanged() {
		s += fmt.Sprintf(" | %s %s → %s", ui.BadgeRankUp, *res.PreviousRank, res.After.Rank)
	}
	if res.Spawned != nil {
		s += " | next instance queued"
	}
	return s
}

func (m boardModel) visible() []engine.Task {
	if !m.hideDone {
		return m.tasks
	}
	out := make([]engine.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func (m boardModel) current() *engine.Task {
	v := m.visible()
	if m.selected < 0 || m.selected >= len(v) {
		return nil
	}
	t := v[m.selected]
	return &t
}

func (m *boardModel) clampSelection() {
	n := len(m.visible())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}
	return m.renderHeader() + "\n\n" + m.renderMain() + "\n" + m.renderFooter()
}

func (m boardModel) renderHeader() string {
	if m.progress == nil {
		return "Arise — loading…"
	}
	p := m.progress
	return fmt.Sprintf("Arise | %s | %s | Level %d | XP %d/%d %s",
		m.userID, ui.RankText(p.Rank), p.Level, p.CurrentXP, p.RequiredXP,
		ui.XPBar(p.CurrentXP, p.RequiredXP, 30))
}

func (m boardModel) renderMain() string {
	if m.loading {
		return "Loading…"
	}
	tasks := m.visible()
	if len(tasks) == 0 {
		return "(no tasks)"
	}
	var out []string
	for i, t := range tasks {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		line := fmt.Sprintf("%s%s %s %s %s", cursor, check, ui.KindIcon(t.Recurring != nil), t.Name, ui.PriorityText(t.Priority))
		if t.Recurring != nil {
			line += " " + ui.Muted.Render(ui.RecurrenceText(t.Recurring))
			if t.Recurring.NextDue != nil {
				line += ui.Muted.Render(" next " + t.Recurring.NextDue.Format("Mon Jan 2 15:04"))
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func (m boardModel) renderFooter() string {
	keys := ui.Muted.Render("↑/↓ move • c complete • x delete • h hide done • s sweep • q quit")
	return "\n" + m.lastLog + "\n" + keys
}
