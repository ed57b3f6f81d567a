package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/jobs"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// deleteModal asks before a job is deleted. It stays open while the request
// runs and after a failure, so the user can retry or dismiss.
type deleteModal struct {
	ctx     context.Context
	confirm *jobs.DeleteConfirmation
}

func newDeleteModal(ctx context.Context, confirm *jobs.DeleteConfirmation) *deleteModal {
	return &deleteModal{ctx: ctx, confirm: confirm}
}

func (d *deleteModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || d.confirm.Pending() {
		return d, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Yes):
		confirm, ctx := d.confirm, d.ctx
		return d, func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
			defer cancel()
			return deleteDoneMsg{confirm: confirm, err: confirm.Confirm(ctx)}
		}, false
	case key.Matches(keyMsg, keys.No):
		d.confirm.Dismiss()
		return d, nil, true
	}
	return d, nil, false
}

func (d *deleteModal) View(theme Theme, width, height int) string {
	styles := theme.Styles().WithBackground(theme.Surface)
	bg := NewBgStyle(theme.Surface)

	var b strings.Builder
	b.WriteString(bg.Render("Delete job", styles.DangerText))
	b.WriteString("\n\n")
	for _, line := range strings.Split(d.confirm.Prompt(), "\n") {
		b.WriteString(bg.Render(line, styles.Text))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case d.confirm.Pending():
		b.WriteString(bg.Render("Deleting...", styles.WarningText))
	case d.confirm.Err() != nil:
		b.WriteString(bg.Render(api.UserMessage(d.confirm.Err(), MsgDeleteFailed), styles.DangerText))
		b.WriteString("\n")
		b.WriteString(bg.Render("y: retry  n: dismiss", styles.FaintText))
	default:
		b.WriteString(bg.Render("y: delete  n: keep", styles.FaintText))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Danger)).
		Background(lipgloss.Color(theme.Surface)).
		Padding(1, 2).
		Width(min(60, max(width-4, 20))).
		Render(b.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(lipgloss.Color(theme.Background)))
}
