package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/recast/internal/api"
)

// MsgNoMatchingJobs is the empty state while a title search hides every job.
const MsgNoMatchingJobs = "No matching jobs"

// jobSearch filters the current page by title on the client. It never
// changes the server query, so paging and the status filter still apply.
type jobSearch struct {
	active bool // input has focus
	query  string
	input  textinput.Model
}

func newJobSearch() jobSearch {
	in := textinput.New()
	in.Prompt = "/"
	in.Placeholder = "Search titles..."
	in.CharLimit = 200
	in.Width = 40
	return jobSearch{input: in}
}

func (m Model) startJobSearch() (tea.Model, tea.Cmd) {
	m.search.active = true
	m.search.input.SetValue(m.search.query)
	m.search.input.CursorEnd()
	return m, m.search.input.Focus()
}

// handleJobSearchInput filters as the user types. Enter keeps the filter,
// esc drops it.
func (m Model) handleJobSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.search.active = false
		m.search.input.Blur()
		m.search.query = strings.TrimSpace(m.search.input.Value())
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.clearJobSearch()
		return m, nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	m.search.query = strings.TrimSpace(m.search.input.Value())
	m.selectedRow = 0
	return m, cmd
}

func (m *Model) clearJobSearch() {
	m.search.active = false
	m.search.query = ""
	m.search.input.Blur()
	m.search.input.SetValue("")
	m.clampSelection()
}

// visibleJobs returns the jobs of the current page that match the search.
func (m Model) visibleJobs() []api.Job {
	if m.search.query == "" {
		return m.snapshot.Jobs
	}
	needle := strings.ToLower(m.search.query)
	var out []api.Job
	for _, job := range m.snapshot.Jobs {
		if strings.Contains(strings.ToLower(job.Title), needle) {
			out = append(out, job)
		}
	}
	return out
}
