package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/upload"
)

// MsgFileSelected confirms that a file was read and accepted.
const MsgFileSelected = "File selected successfully!"

// Upload form focus positions.
const (
	uploadFieldPath = iota
	uploadFieldTitle
	uploadFieldPlatforms
	uploadFieldCount
)

// defaultPlatforms are preselected on a fresh form.
var defaultPlatforms = []api.Platform{api.PlatformLinkedIn, api.PlatformTwitter, api.PlatformBlog}

type uploadForm struct {
	path     textinput.Model
	title    textinput.Model
	focus    int
	cursor   int
	selected map[api.Platform]bool
	file     *selectedFile
	err      string
	pending  bool
}

// selectedFile describes a file that passed validation.
type selectedFile struct {
	path string
	name string
	size int
}

type fileSelectedMsg struct {
	path string
	file selectedFile
	err  error
}

func newUploadForm() uploadForm {
	path := textinput.New()
	path.Placeholder = "~/Documents/talk.pdf"
	path.CharLimit = 1024
	path.Width = 48

	title := textinput.New()
	title.Placeholder = "optional"
	title.CharLimit = 200
	title.Width = 48

	f := uploadForm{path: path, title: title, selected: make(map[api.Platform]bool)}
	for _, p := range defaultPlatforms {
		f.selected[p] = true
	}
	return f
}

func (f *uploadForm) focusFirst() {
	f.setFocus(uploadFieldPath)
}

func (f *uploadForm) setFocus(idx int) {
	f.focus = idx
	f.path.Blur()
	f.title.Blur()
	switch idx {
	case uploadFieldPath:
		f.path.Focus()
	case uploadFieldTitle:
		f.title.Focus()
	}
}

func (f *uploadForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case uploadFieldPath:
		f.path, cmd = f.path.Update(msg)
	case uploadFieldTitle:
		f.title, cmd = f.title.Update(msg)
	}
	return cmd
}

// platforms returns the selected platforms in canonical order.
func (f uploadForm) platforms() []api.Platform {
	var out []api.Platform
	for _, p := range api.Platforms {
		if f.selected[p] {
			out = append(out, p)
		}
	}
	return out
}

// request builds the upload request for the validated file. The file
// contents are read when the request is sent.
func (f uploadForm) request() api.UploadRequest {
	return api.UploadRequest{
		FileName:    f.file.name,
		Title:       f.title.Value(),
		Platforms:   f.platforms(),
		Preferences: map[string]any{},
	}
}

// handleUploadKey processes keys on the upload form.
func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.upload.pending {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewJobs)
	case msg.Type == tea.KeyTab || msg.Type == tea.KeyDown:
		m.upload.setFocus((m.upload.focus + 1) % uploadFieldCount)
		return m, nil
	case msg.Type == tea.KeyShiftTab || msg.Type == tea.KeyUp:
		m.upload.setFocus((m.upload.focus - 1 + uploadFieldCount) % uploadFieldCount)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if m.upload.focus == uploadFieldPath {
			return m, selectFileCmd(m.upload.path.Value())
		}
		return m.submitUpload()
	}

	if m.upload.focus == uploadFieldPlatforms {
		n := len(api.Platforms)
		switch {
		case msg.Type == tea.KeyLeft || msg.String() == "h":
			m.upload.cursor = (m.upload.cursor - 1 + n) % n
		case msg.Type == tea.KeyRight || msg.String() == "l":
			m.upload.cursor = (m.upload.cursor + 1) % n
		case key.Matches(msg, m.keys.Toggle):
			p := api.Platforms[m.upload.cursor]
			m.upload.selected[p] = !m.upload.selected[p]
			m.upload.err = ""
		}
		return m, nil
	}

	if m.upload.focus == uploadFieldPath {
		m.upload.file = nil
	}
	m.upload.err = ""
	return m, m.upload.update(msg)
}

// selectFileCmd reads and validates the file at path without uploading it.
func selectFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		resolved, err := expandHome(path)
		if err != nil {
			return fileSelectedMsg{path: path, err: err}
		}
		req, err := loadUpload(resolved)
		if err != nil {
			return fileSelectedMsg{path: path, err: err}
		}
		return fileSelectedMsg{path: path, file: selectedFile{path: resolved, name: req.FileName, size: len(req.File)}}
	}
}

// loadUpload reads path and checks the file the same way the final submission
// will, without requiring platforms yet.
func loadUpload(path string) (api.UploadRequest, error) {
	if strings.TrimSpace(path) == "" {
		return api.UploadRequest{}, &upload.ValidationError{Field: "file", Message: "Please select a file to upload"}
	}
	req, err := upload.LoadFile(path)
	if err != nil {
		return api.UploadRequest{}, err
	}
	fileOnly := req
	fileOnly.Platforms = []api.Platform{api.PlatformBlog}
	if err := upload.Validate(&fileOnly); err != nil {
		return api.UploadRequest{}, err
	}
	return req, nil
}

func (m Model) handleFileSelected(msg fileSelectedMsg) (tea.Model, tea.Cmd) {
	if msg.path != m.upload.path.Value() {
		return m, nil
	}
	if msg.err != nil {
		m.upload.file = nil
		m.upload.err = uploadErrorMessage(msg.err)
		return m, nil
	}
	file := msg.file
	m.upload.file = &file
	m.upload.err = ""
	m.notify(toastSuccess, MsgFileSelected)
	m.upload.setFocus(uploadFieldTitle)
	return m, nil
}

func (m Model) submitUpload() (tea.Model, tea.Cmd) {
	if m.upload.file == nil {
		m.upload.err = "Please select a file to upload"
		return m, nil
	}
	if len(m.upload.platforms()) == 0 {
		m.upload.err = "Please select at least one platform"
		return m, nil
	}
	m.upload.pending = true
	m.upload.err = ""
	return m, uploadCmd(m.ctx, m.backend, m.upload.file.path, m.upload.request())
}

func (m Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	m.upload.pending = false
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("upload failed")
		m.upload.err = uploadErrorMessage(msg.err)
		m.notify(toastError, m.upload.err)
		return m, nil
	}
	m.log.Info().Str("job_id", msg.resp.JobID).Msg("content uploaded")
	m.notify(toastSuccess, upload.MsgSuccess)
	m.upload = newUploadForm()
	if m.currentView != ViewUpload {
		return m, nil
	}
	return m.switchView(ViewJobs)
}

// uploadErrorMessage prefers validation text, then the server's detail.
func uploadErrorMessage(err error) string {
	var verr *upload.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	if errors.Is(err, os.ErrNotExist) {
		return "File not found"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return upload.MsgFailed + " (request timed out)"
	}
	return api.UserMessage(err, upload.MsgFailed)
}

// expandHome expands a leading ~ in path.
func expandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// renderUpload renders the upload form.
func (m Model) renderUpload() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	f := m.upload

	label := func(text string, idx int) string {
		style := styles.MutedText
		if f.focus == idx {
			style = styles.AccentText
		}
		return bg.Render(padRight(text, 11), style)
	}

	var b strings.Builder
	b.WriteString(label("File", uploadFieldPath))
	b.WriteString(f.path.View())
	b.WriteString("\n")
	if f.file != nil {
		b.WriteString(bg.Spaces(11))
		b.WriteString(bg.Render(fmt.Sprintf("%s (%s)", f.file.name, formatBytes(f.file.size)), styles.SuccessText))
	} else {
		b.WriteString(bg.Spaces(11))
		b.WriteString(bg.Render("PDF, DOCX, PPTX or TXT up to 50MB. enter to select.", styles.FaintText))
	}
	b.WriteString("\n\n")

	b.WriteString(label("Title", uploadFieldTitle))
	b.WriteString(f.title.View())
	b.WriteString("\n\n")

	b.WriteString(label("Platforms", uploadFieldPlatforms))
	for i, p := range api.Platforms {
		box := "[ ]"
		if f.selected[p] {
			box = "[x]"
		}
		style := styles.Text
		if f.focus == uploadFieldPlatforms && i == f.cursor {
			style = styles.AccentText.Bold(true)
		}
		b.WriteString(bg.Render(box+" "+p.Label(), style))
		b.WriteString(bg.Spaces(2))
	}
	b.WriteString("\n\n")

	switch {
	case f.pending:
		b.WriteString(bg.Render("Uploading...", styles.WarningText))
	case f.err != "":
		b.WriteString(bg.Render(f.err, styles.DangerText))
	default:
		b.WriteString(bg.Render("enter: upload  space: toggle platform  esc: back", styles.FaintText))
	}

	content := lipgloss.NewStyle().Padding(1, 2).Background(lipgloss.Color(m.theme.FocusBg)).Render(b.String())
	return m.renderTitledBox("Upload content", content, m.width, m.contentHeight(), true)
}

// formatBytes renders a size in B, KB or MB.
func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
