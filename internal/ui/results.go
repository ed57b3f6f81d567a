package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/results"
)

// resultsState holds the results viewer for one job.
type resultsState struct {
	job       api.Job
	data      results.Results
	platforms []api.Platform
	tab       int
	loading   bool
	err       string
	viewport  viewport.Model
}

func (r resultsState) current() (api.Platform, api.Output, bool) {
	if r.tab < 0 || r.tab >= len(r.platforms) {
		return "", api.Output{}, false
	}
	p := r.platforms[r.tab]
	out, ok := r.data.Outputs[p]
	return p, out, ok
}

// openResults shows the selected job's results. Only completed jobs have any.
func (m Model) openResults() (tea.Model, tea.Cmd) {
	job, ok := m.selectedJob()
	if !ok {
		return m, nil
	}
	if job.Status != api.StatusCompleted {
		m.notify(toastError, actionMessage(results.ErrNotCompleted, MsgLoadResultsFailed))
		return m, nil
	}
	if m.backend == nil {
		return m, nil
	}
	m.results = resultsState{job: job, loading: true, viewport: m.results.viewport}
	m.results.viewport.SetContent("")
	next, cmd := m.switchView(ViewResults)
	return next, tea.Batch(cmd, fetchResultsCmd(m.ctx, m.backend, job))
}

func (m *Model) handleResults(msg resultsMsg) {
	if msg.job.ID != m.results.job.ID {
		return
	}
	m.results.loading = false
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Str("job_id", msg.job.ID).Msg("results load failed")
		m.results.err = actionMessage(msg.err, MsgLoadResultsFailed)
		m.notify(toastError, m.results.err)
		return
	}
	m.results.err = ""
	m.results.data = msg.results
	m.results.platforms = results.OrderedPlatforms(msg.results)
	m.results.tab = 0
	m.refreshResultsViewport()
}

// handleResultsKey processes keyboard input for the results view.
func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.results.platforms)
	switch {
	case key.Matches(msg, m.keys.NextTab):
		if n > 0 {
			m.results.tab = (m.results.tab + 1) % n
			m.refreshResultsViewport()
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		if n > 0 {
			m.results.tab = (m.results.tab - 1 + n) % n
			m.refreshResultsViewport()
		}
		return m, nil
	case key.Matches(msg, m.keys.Export):
		platform, out, ok := m.results.current()
		if !ok {
			return m, nil
		}
		return m, exportCmd(m.config.DownloadDir, results.PlatformFileName(platform), results.ExportText(platform, out.Content))
	case key.Matches(msg, m.keys.ExportAll):
		if !m.results.data.Found() {
			return m, nil
		}
		text := results.ExportJob(m.results.data, m.now())
		return m, exportCmd(m.config.DownloadDir, results.JobFileName(m.results.job.ID), text)
	case key.Matches(msg, m.keys.Copy):
		platform, out, ok := m.results.current()
		if !ok {
			return m, nil
		}
		return m, copyCmd(results.ExportText(platform, out.Content))
	case key.Matches(msg, m.keys.Regenerate):
		_, out, ok := m.results.current()
		if !ok || out.ID == "" || m.dispatcher == nil {
			return m, nil
		}
		d, ctx, prefs := m.dispatcher, m.ctx, m.results.job.UserPreferences
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
			defer cancel()
			_, err := d.Regenerate(ctx, out.ID, prefs)
			return actionDoneMsg{success: MsgRegenerated, fallback: MsgRegenerateFailed, err: err}
		}
	}

	var cmd tea.Cmd
	m.results.viewport, cmd = m.results.viewport.Update(msg)
	return m, cmd
}

func exportCmd(dir, name, text string) tea.Cmd {
	return func() tea.Msg {
		path, err := results.Save(dir, name, text)
		return actionDoneMsg{success: MsgExported + ": " + path, fallback: MsgExportFailed, err: err}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{success: MsgCopied, fallback: MsgCopyFailed, err: results.CopyText(text)}
	}
}

func (m *Model) refreshResultsViewport() {
	platform, out, ok := m.results.current()
	if !ok {
		m.results.viewport.SetContent("")
		return
	}
	m.results.viewport.SetContent(m.renderOutput(platform, out.Content, max(m.results.viewport.Width-1, 20)))
	m.results.viewport.GotoTop()
}

// renderOutput renders one platform's content for reading in the terminal.
func (m Model) renderOutput(platform api.Platform, raw json.RawMessage, width int) string {
	styles := m.theme.Styles()
	wrap := lipgloss.NewStyle().Width(width)
	heading := styles.AccentText.Bold(true)
	meta := styles.FaintText

	var b strings.Builder
	switch platform {
	case api.PlatformLinkedIn:
		post, ok := results.DecodeLinkedIn(raw)
		if !ok {
			break
		}
		b.WriteString(wrap.Render(post.Post))
		if len(post.Hashtags) > 0 {
			b.WriteString("\n\n")
			b.WriteString(styles.InfoText.Render(strings.Join(post.Hashtags, " ")))
		}
		b.WriteString("\n\n")
		b.WriteString(meta.Render(fmt.Sprintf("%d characters", post.CharacterCount)))
		return b.String()
	case api.PlatformTwitter:
		thread, ok := results.DecodeTwitter(raw)
		if !ok {
			break
		}
		for i, tw := range thread.Tweets {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(heading.Render(fmt.Sprintf("%d/%d", tw.Number, len(thread.Tweets))))
			b.WriteString("  ")
			b.WriteString(meta.Render(fmt.Sprintf("%d chars", tw.CharCount)))
			b.WriteString("\n")
			b.WriteString(wrap.Render(tw.Text))
		}
		return b.String()
	case api.PlatformBlog:
		article, ok := results.DecodeBlog(raw)
		if !ok {
			break
		}
		b.WriteString(heading.Render(article.Title))
		b.WriteString("\n")
		if article.MetaDescription != "" {
			b.WriteString(styles.MutedText.Width(width).Render(article.MetaDescription))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(article.Content))
		b.WriteString("\n\n")
		b.WriteString(meta.Render(fmt.Sprintf("%d words", article.WordCount)))
		return b.String()
	case api.PlatformEmail:
		seq, ok := results.DecodeEmail(raw)
		if !ok {
			break
		}
		for i, e := range seq.Emails {
			if i > 0 {
				b.WriteString("\n\n")
				b.WriteString(meta.Render(strings.Repeat("─", min(width, 40))))
				b.WriteString("\n\n")
			}
			b.WriteString(heading.Render(fmt.Sprintf("Email %d: %s", e.Number, e.Subject)))
			b.WriteString("\n\n")
			b.WriteString(wrap.Render(e.Content))
		}
		return b.String()
	}

	// Unknown platform or unexpected shape: show the raw payload.
	return styles.MutedText.Width(width).Render(string(raw))
}

// renderResults renders the platform tabs above the content viewport.
func (m Model) renderResults() string {
	height := m.contentHeight()
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	title := "Results · " + m.results.job.DisplayTitle()

	var body string
	switch {
	case m.results.loading:
		body = bg.Render("Loading results...", styles.MutedText)
	case m.results.err != "":
		body = bg.Render(m.results.err, styles.DangerText)
	case !m.results.data.Found():
		body = bg.Render("No results found for this job", styles.MutedText)
	default:
		body = m.renderTabs() + "\n\n" + m.results.viewport.View()
	}
	return m.renderTitledBox(title, body, m.width, height, true)
}

func (m Model) renderTabs() string {
	bg := NewBgStyle(m.theme.FocusBg)
	tabs := make([]string, 0, len(m.results.platforms))
	for i, p := range m.results.platforms {
		color := lipgloss.Color(m.theme.PlatformColor(p))
		style := lipgloss.NewStyle().Foreground(color).Padding(0, 1)
		if i == m.results.tab {
			style = style.Bold(true).Underline(true)
		}
		label := p.Label()
		if out := m.results.data.Outputs[p]; out.IsFavorite {
			label += " ★"
		}
		tabs = append(tabs, style.Background(lipgloss.Color(m.theme.FocusBg)).Render(label))
	}
	return bg.Join(tabs, " ")
}
