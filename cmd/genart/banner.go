package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"genart/internal/domain"
	"genart/internal/schedule"
	"genart/internal/status"
)

var (
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DBEAFE")).Background(lipgloss.Color("#1E3A8A")).Padding(0, 1)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A1A1AA")).Background(lipgloss.Color("#27272A")).Padding(0, 1)
	agentStyle  = lipgloss.NewStyle().Bold(true)
	metaStyle   = lipgloss.NewStyle().Faint(true)
	pulseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Blink(true)
)

// renderBanner draws the status line for a snapshot. It returns "" while
// nothing has been fetched successfully.
func renderBanner(snap status.Snapshot, cycle *schedule.Schedule, now time.Time) string {
	if !snap.Visible() {
		return ""
	}
	doc := snap.Doc
	idle := snap.State == status.StateIdle

	parts := []string{agentStyle.Render(doc.Agent), doc.Task}
	if doc.Progress != "" {
		parts = append(parts, doc.Progress)
	}
	main := strings.Join(parts, " • ")
	if !idle {
		main = pulseStyle.Render("●") + " " + main
	}

	meta := []string{"Updated: " + domain.ClockTime(doc.Timestamp)}
	if idle {
		next := doc.NextCycle
		if next == "" && cycle != nil {
			next = cycle.Until(now)
		}
		if next != "" {
			meta = append(meta, "Next cycle: "+next)
		}
	}
	line := main + "   " + metaStyle.Render(strings.Join(meta, " • "))
	if idle {
		return idleStyle.Render(line)
	}
	return activeStyle.Render(line)
}
