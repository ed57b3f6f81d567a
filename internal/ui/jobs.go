package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/jobs"
	"github.com/five82/recast/internal/results"
)

// handleJobsKey processes keyboard input for the jobs view.
func (m Model) handleJobsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.visibleJobs())
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(count-1, 0)
	case key.Matches(msg, m.keys.Search):
		return m.startJobSearch()
	case key.Matches(msg, m.keys.CycleFilter):
		return m.cycleStatusFilter()
	case key.Matches(msg, m.keys.NextPage):
		return m.changePage(1)
	case key.Matches(msg, m.keys.PrevPage):
		return m.changePage(-1)
	case key.Matches(msg, m.keys.Refresh):
		if m.poller == nil {
			return m, nil
		}
		m.notify(toastInfo, "Refreshing jobs...")
		return m, pollerCmd(m.ctx, func(ctx context.Context) error {
			return m.poller.Refresh(ctx, false)
		})
	case key.Matches(msg, m.keys.CancelJob):
		return m.cancelSelected()
	case key.Matches(msg, m.keys.DeleteJob):
		return m.deleteSelected()
	case key.Matches(msg, m.keys.Open):
		return m.openResults()
	}
	return m, nil
}

func (m Model) selectedJob() (api.Job, bool) {
	visible := m.visibleJobs()
	if m.selectedRow < 0 || m.selectedRow >= len(visible) {
		return api.Job{}, false
	}
	return visible[m.selectedRow], true
}

func (m *Model) clampSelection() {
	if n := len(m.visibleJobs()); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
}

// cycleStatusFilter moves to the next status filter and remembers it.
func (m Model) cycleStatusFilter() (tea.Model, tea.Cmd) {
	if m.poller == nil {
		return m, nil
	}
	status := nextStatusFilter(m.poller.Store().Query().Status)
	m.prefs.StatusFilter = string(status)
	m.savePrefs()
	m.selectedRow = 0
	poller := m.poller
	return m, tea.Batch(
		pollerCmd(m.ctx, func(ctx context.Context) error { return poller.SetStatusFilter(ctx, status) }),
		fetchSnapshotCmd(poller.Store()),
	)
}

func (m Model) changePage(delta int) (tea.Model, tea.Cmd) {
	if m.poller == nil {
		return m, nil
	}
	query := m.poller.Store().Query()
	page := query.Normalized().Page + delta
	if page < 1 || page > m.snapshot.Pages() {
		return m, nil
	}
	m.selectedRow = 0
	poller := m.poller
	return m, tea.Batch(
		pollerCmd(m.ctx, func(ctx context.Context) error { return poller.SetPage(ctx, page) }),
		fetchSnapshotCmd(poller.Store()),
	)
}

func (m Model) cancelSelected() (tea.Model, tea.Cmd) {
	job, ok := m.selectedJob()
	if !ok || m.dispatcher == nil {
		return m, nil
	}
	if !m.dispatcher.CanCancel(job) {
		m.notify(toastError, actionMessage(jobs.ErrNotCancellable, MsgCancelFailed))
		return m, nil
	}
	d, ctx := m.dispatcher, m.ctx
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		return actionDoneMsg{success: MsgCancelled, fallback: MsgCancelFailed, err: d.Cancel(ctx, job)}
	}
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	job, ok := m.selectedJob()
	if !ok || m.dispatcher == nil {
		return m, nil
	}
	confirm, err := m.dispatcher.RequestDelete(job)
	if err != nil {
		m.notify(toastError, actionMessage(err, MsgDeleteFailed))
		return m, nil
	}
	m.modal = newDeleteModal(m.ctx, confirm)
	return m, nil
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg(strings.ToLower(msg.fallback))
		m.notify(toastError, actionMessage(msg.err, msg.fallback))
		return m, nil
	}
	m.notify(toastSuccess, msg.success)
	return m, fetchSnapshotCmd(m.snapshotStore())
}

func (m Model) handleDeleteDone(msg deleteDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, jobs.ErrActionInFlight) {
		return m, nil
	}
	if msg.err != nil {
		m.notify(toastError, actionMessage(msg.err, MsgDeleteFailed))
		return m, nil
	}
	if dm, ok := m.modal.(*deleteModal); ok && dm.confirm == msg.confirm {
		m.modal = nil
	}
	m.notify(toastSuccess, MsgDeleted)
	return m, tea.Batch(fetchSnapshotCmd(m.snapshotStore()), loadOverviewCmd(m.ctx, m.backend))
}

// actionMessage turns a dispatcher or API error into notification text.
func actionMessage(err error, fallback string) string {
	for _, known := range []error{jobs.ErrNotCancellable, jobs.ErrNotDeletable, jobs.ErrActionInFlight, results.ErrNotCompleted} {
		if errors.Is(err, known) {
			msg := known.Error()
			return strings.ToUpper(msg[:1]) + msg[1:]
		}
	}
	return api.UserMessage(err, fallback)
}

// renderJobs renders the job table beside the selected job's details.
func (m Model) renderJobs() string {
	height := m.contentHeight()
	tableWidth := m.width * 55 / 100
	if m.width >= LayoutWideWidth {
		tableWidth = m.width * 45 / 100
	}
	detailWidth := m.width - tableWidth

	table := m.renderTitledBox(m.jobsTitle(), m.renderJobTable(tableWidth-2, height-2), tableWidth, height, true)

	var detail string
	if job, ok := m.selectedJob(); ok {
		detail = m.renderJobDetail(job, detailWidth-4)
	} else {
		detail = m.renderRecent(detailWidth - 4)
	}
	detailPane := m.renderTitledBox("Details", detail, detailWidth, height, false)

	return lipgloss.JoinHorizontal(lipgloss.Top, table, detailPane)
}

func (m Model) jobsTitle() string {
	q := m.snapshot.Query.Normalized()
	title := fmt.Sprintf("Jobs · %s · page %d/%d · %d total",
		statusFilterLabel(q.Status), q.Page, m.snapshot.Pages(), m.snapshot.Total)
	if m.search.query != "" {
		title += " · /" + m.search.query
	}
	return title
}

// renderJobTable renders one row per job, scrolled so the selection is
// visible.
func (m Model) renderJobTable(width, height int) string {
	styles := m.theme.Styles()
	jobsList := m.visibleJobs()
	if len(jobsList) == 0 {
		msg := "No jobs yet. Press u to upload content."
		switch {
		case m.snapshot.Loading:
			msg = "Loading jobs..."
		case m.snapshot.LastError != nil:
			msg = api.UserMessage(m.snapshot.LastError, MsgLoadJobsFailed)
		case m.search.query != "":
			msg = MsgNoMatchingJobs
		case m.snapshot.Query.Status != "":
			msg = "No " + strings.ToLower(m.snapshot.Query.Status.Label()) + " jobs"
		}
		return styles.MutedText.Background(lipgloss.Color(m.theme.FocusBg)).Render(msg)
	}

	start := 0
	if height > 0 && m.selectedRow >= height {
		start = m.selectedRow - height + 1
	}
	end := len(jobsList)
	if height > 0 {
		end = min(end, start+height)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		selected := i == m.selectedRow
		bgColor := m.theme.FocusBg
		if selected {
			bgColor = m.theme.SelectionBg
		}
		lines = append(lines, NewBgStyle(bgColor).FillLine(m.formatJobRow(jobsList[i], width, bgColor, selected), width))
	}
	return strings.Join(lines, "\n")
}

// formatJobRow formats "Title · Status 45%" with a busy marker while an
// action runs for the job.
func (m Model) formatJobRow(job api.Job, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)

	status := job.Status.Label()
	if job.Status == api.StatusProcessing && job.ProgressPercentage > 0 {
		status += fmt.Sprintf(" %d%%", min(job.ProgressPercentage, 100))
	}
	if m.dispatcher != nil && m.dispatcher.Busy(job.ID) {
		status += " …"
	}
	created := formatTimestamp(job.ParsedCreatedAt())
	titleWidth := max(width-len([]rune(status))-len(created)-6, 10)

	styles := m.theme.Styles()
	titleStyle, sepStyle, dateStyle := styles.Text, styles.FaintText, styles.MutedText
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(job.Status)))
	if selected {
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		titleStyle, sepStyle, dateStyle, statusStyle = sel, sel, sel, sel
	}

	return bg.Space() +
		bg.Render(padRight(truncate(job.DisplayTitle(), titleWidth), titleWidth), titleStyle) +
		bg.Render(" · ", sepStyle) +
		bg.Render(status, statusStyle) +
		bg.Spaces(2) +
		bg.Render(created, dateStyle)
}

// renderJobDetail renders the selected job's fields.
func (m Model) renderJobDetail(job api.Job, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)

	row := func(label, value string, style lipgloss.Style) string {
		if value == "" {
			return ""
		}
		return bg.Render(padRight(label, 11), styles.MutedText) + bg.Render(truncate(value, max(width-11, 10)), style)
	}

	var lines []string
	add := func(l ...string) {
		for _, s := range l {
			if s != "" {
				lines = append(lines, s)
			}
		}
	}
	blank := func() { lines = append(lines, "") }

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(job.Status))).Bold(true)
	add(bg.Render(truncate(job.DisplayTitle(), width), styles.Text.Bold(true)))
	blank()
	add(
		row("Status", job.Status.Label(), statusStyle),
		row("Platforms", platformList(job.Platforms), styles.Text),
		row("Created", formatTimestamp(job.ParsedCreatedAt()), styles.Text),
		row("Updated", formatTimestamp(job.ParsedUpdatedAt()), styles.Text),
		row("Completed", formatTimestamp(job.ParsedCompletedAt()), styles.Text),
		row("Job ID", job.ID, styles.FaintText),
	)
	if job.Status.IsActive() {
		blank()
		add(row("Step", job.CurrentStep, styles.InfoText),
			bg.Render(progressBar(job.ProgressPercentage, max(width-6, 10)), styles.AccentText)+
				bg.Render(fmt.Sprintf(" %d%%", job.ProgressPercentage), styles.MutedText))
	}
	if job.ErrorMessage != "" {
		blank()
		add(row("Error", job.ErrorMessage, styles.DangerText))
	}
	if job.RetryCount > 0 {
		add(row("Retries", fmt.Sprint(job.RetryCount), styles.WarningText))
	}

	var hints []string
	if job.Status == api.StatusCompleted {
		hints = append(hints, "enter: view results")
	}
	if job.Status.IsActive() {
		hints = append(hints, "c: cancel")
	}
	if job.Status.IsTerminal() {
		hints = append(hints, "d: delete")
	}
	if len(hints) > 0 {
		blank()
		add(bg.Render(strings.Join(hints, "  "), styles.FaintText))
	}
	return strings.Join(lines, "\n")
}

// renderRecent lists the dashboard's most recent jobs when the current page
// is empty.
func (m Model) renderRecent(width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)
	if len(m.overview.Recent) == 0 {
		return bg.Render("Select a job", styles.MutedText)
	}
	lines := []string{bg.Render("Recent jobs", styles.AccentText), ""}
	for _, job := range m.overview.Recent {
		status := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(job.Status)))
		lines = append(lines,
			bg.Render(truncate(job.DisplayTitle(), max(width-14, 10)), styles.Text)+bg.Spaces(2)+
				bg.Render(job.Status.Label(), status))
	}
	return strings.Join(lines, "\n")
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColorStr, bgColorStr := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColorStr, bgColorStr = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 4)
	title = truncate(title, innerWidth-4)
	titleLen := len([]rune(title))
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	top := bg.Render("┌"+strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad)+"┐", borderStyle)
	bottom := bg.Render("└"+strings.Repeat("─", innerWidth)+"┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))
	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 1)

	lines := make([]string, 0, boxHeight+2)
	lines = append(lines, top)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines, bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}
	lines = append(lines, bottom)
	return strings.Join(lines, "\n")
}
