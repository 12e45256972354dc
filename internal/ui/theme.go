package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/crach-ad/crachToDo/internal/engine"
)

// Arise theme (CLI + TUI).

const (
	IconTask    = "🗡️"
	IconSparkle = "✨"
	IconPlus    = "➕"
	IconDone    = "✅"
	IconTrophy  = "🏆"
	IconBolt    = "⚡"
	IconInfo    = "ℹ️"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconLoop    = "🔁"
	IconScroll  = "📜"
	IconTrash   = "🗑️"
	IconCrown   = "👑"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	Dim   = lipgloss.NewStyle().Foreground(cMuted)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle  = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
	BadgeRankUp  = lipgloss.NewStyle().Bold(true).Foreground(cAccent).Render("RANK UP")
)

// rankColors runs cold to hot as the hunter climbs.
var rankColors = map[engine.Rank]lipgloss.Color{
	engine.RankE:   lipgloss.Color("244"),
	engine.RankD:   lipgloss.Color("42"),
	engine.RankC:   lipgloss.Color("39"),
	engine.RankB:   lipgloss.Color("63"),
	engine.RankA:   lipgloss.Color("205"),
	engine.RankS:   lipgloss.Color("214"),
	engine.RankSS:  lipgloss.Color("202"),
	engine.RankSSS: lipgloss.Color("220"),
}

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

func RankText(r engine.Rank) string {
	c, ok := rankColors[r]
	if !ok {
		c = cMuted
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(string(r) + "-Rank")
}

func StatusText(completed bool) string {
	if completed {
		return Good.Render("done")
	}
	return Warn.Render("pending")
}

func PriorityText(p engine.Priority) string {
	switch p {
	case engine.PriorityUrgent:
		return Bad.Render("urgent")
	case engine.PriorityHigh:
		return Warn.Render("high")
	case engine.PriorityLow:
		return Muted.Render("low")
	default:
		return H2.Render(string(p))
	}
}

func KindIcon(recurring bool) string {
	if recurring {
		return IconLoop
	}
	return IconTask
}

// XPBar renders current/required as a fixed-width bar.
func XPBar(current, required, width int) string {
	if required <= 0 {
		required = 1
	}
	if width <= 3 {
		width = 3
	}
	if current < 0 {
		current = 0
	}
	if current > required {
		current = required
	}
	filled := current * width / required
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// RecurrenceText describes a schedule, e.g. "weekly Mon,Wed" or "every 3d".
func RecurrenceText(r *engine.Recurrence) string {
	if r == nil {
		return ""
	}
	switch r.Type {
	case engine.RecurrenceWeekly:
		names := make([]string, 0, len(r.Days))
		for _, d := range r.Days {
			if d >= 0 && d <= 6 {
				names = append(names, weekdayShort[d])
			}
		}
		if len(names) == 0 {
			return "weekly"
		}
		return "weekly " + strings.Join(names, ",")
	case engine.RecurrenceCustom:
		if r.Interval != nil {
			return fmt.Sprintf("every %dd", *r.Interval)
		}
		return "custom"
	default:
		return string(r.Type)
	}
}

var weekdayShort = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
