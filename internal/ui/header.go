package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/session"
)

// renderHeader renders the status line: identity, analytics counts and the
// connection state of the job list.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("recast", styles.Logo)}
	if sess, ok := m.currentSession(); ok {
		parts = append(parts, bg.Render(truncate(sess.DisplayName(), 24), styles.Text))
	}
	if m.overviewOK {
		a := m.overview.Analytics
		parts = append(parts,
			metric(bg, styles, "jobs", a.TotalJobs, styles.Text),
			metric(bg, styles, "done", a.CompletedJobs, styles.SuccessText),
			metric(bg, styles, "active", a.ProcessingJobs, styles.InfoText),
			metric(bg, styles, "outputs", a.TotalOutputs, styles.Text),
		)
		if a.AvgProcessingTimeSeconds != nil {
			parts = append(parts, bg.Render("avg", styles.FaintText)+bg.Space()+
				bg.Render(formatDuration(*a.AvgProcessingTimeSeconds), styles.MutedText))
		}
	}
	parts = append(parts, m.connectionStatus(bg, styles))

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func metric(bg BgStyle, styles Styles, label string, value int, valueStyle lipgloss.Style) string {
	return bg.Render(label, styles.FaintText) + bg.Space() + bg.Render(strconv.Itoa(value), valueStyle)
}

// connectionStatus summarizes the last job list fetch.
func (m Model) connectionStatus(bg BgStyle, styles Styles) string {
	snap := m.snapshot
	switch {
	case snap.LastError != nil:
		label := api.Classify(snap.LastError)
		style := styles.WarningText
		if snap.IsOffline() {
			style = styles.DangerText
		}
		return bg.Render(label, style) + bg.Space() + bg.Render("retrying", styles.MutedText)
	case snap.Loading:
		return bg.Render("Loading...", styles.WarningText)
	case snap.Refreshing:
		return bg.Render("Refreshing", styles.InfoText)
	case !snap.LastUpdated.IsZero():
		return bg.Render("updated", styles.FaintText) + bg.Space() +
			bg.Render(formatAge(snap.LastUpdated, m.now()), styles.MutedText)
	default:
		return bg.Render("Connecting...", styles.MutedText)
	}
}

func (m Model) currentSession() (session.Session, bool) {
	if m.session == nil {
		return session.Session{}, false
	}
	return m.session.Current()
}

// renderCommandBar renders the key hints for the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewResults:
		commands = []cmd{
			{"tab", "Platform"},
			{"s", "Save"},
			{"S", "Save all"},
			{"y", "Copy"},
			{"R", "Regenerate"},
			{"esc", "Jobs"},
			{"?", "More"},
		}
	case ViewUpload:
		commands = []cmd{
			{"tab", "Field"},
			{"space", "Platform"},
			{"enter", "Upload"},
			{"esc", "Jobs"},
		}
	case ViewActivity:
		follow := "Pause"
		if !m.activity.follow {
			follow = "Follow"
		}
		commands = []cmd{
			{"space", follow},
			{"j/k", "Scroll"},
			{"r", "Reload"},
			{"esc", "Jobs"},
			{"?", "More"},
		}
	default:
		if m.search.active {
			return styles.Header.Width(m.width).Render(
				bg.Render(m.search.input.View(), styles.Text) + bg.Spaces(2) +
					bg.Render("enter", styles.AccentText) + bg.Sep(":") + bg.Render("Keep", styles.MutedText) + bg.Spaces(2) +
					bg.Render("esc", styles.AccentText) + bg.Sep(":") + bg.Render("Clear", styles.MutedText))
		}
		commands = []cmd{
			{"/", "Search"},
			{"f", statusFilterLabel(m.snapshot.Query.Status)},
			{"n/p", "Page"},
			{"r", "Refresh"},
			{"enter", "Results"},
			{"c", "Cancel"},
			{"d", "Delete"},
			{"u", "Upload"},
			{"l", "Activity"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands))
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}
