package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/recast/internal/logtail"
)

// activityState holds the client log view.
type activityState struct {
	entries  []logtail.Entry
	follow   bool
	err      error
	viewport viewport.Model
}

func (m *Model) handleActivity(msg activityMsg) {
	m.activity.err = msg.err
	if msg.err == nil {
		m.activity.entries = msg.entries
	}
	m.refreshActivityViewport()
}

// handleActivityKey processes keyboard input for the activity view.
func (m Model) handleActivityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.activity.follow = !m.activity.follow
		if m.activity.follow {
			m.activity.viewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, readActivityCmd(m.config.LogPath())
	case key.Matches(msg, m.keys.Top):
		m.activity.follow = false
		m.activity.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.activity.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.activity.viewport, cmd = m.activity.viewport.Update(msg)
	if !m.activity.viewport.AtBottom() {
		m.activity.follow = false
	}
	return m, cmd
}

func (m *Model) refreshActivityViewport() {
	m.activity.viewport.SetContent(m.formatActivity())
	if m.activity.follow {
		m.activity.viewport.GotoBottom()
	}
}

// formatActivity colors each entry by level.
func (m Model) formatActivity() string {
	if len(m.activity.entries) == 0 {
		return ""
	}
	styles := m.theme.Styles()
	width := max(m.activity.viewport.Width, 20)
	lines := make([]string, 0, len(m.activity.entries))
	for _, e := range m.activity.entries {
		style := styles.Text
		switch strings.ToLower(e.Level) {
		case "error", "fatal", "panic":
			style = styles.DangerText
		case "warn":
			style = styles.WarningText
		case "debug", "trace":
			style = styles.MutedText
		}
		lines = append(lines, style.Render(truncate(e.String(), width)))
	}
	return strings.Join(lines, "\n")
}

// renderActivity renders the tail of the client log.
func (m Model) renderActivity() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	title := "Activity · " + truncateMiddle(m.config.LogPath(), 48)
	if m.activity.follow {
		title += " · following"
	}

	var body string
	switch {
	case m.activity.err != nil:
		body = bg.Render("Unable to read log: "+m.activity.err.Error(), styles.DangerText)
	case len(m.activity.entries) == 0:
		body = bg.Render("Nothing logged yet", styles.MutedText)
	default:
		body = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg)).Render(m.activity.viewport.View())
	}
	return m.renderTitledBox(title, body, m.width, m.contentHeight(), true)
}
