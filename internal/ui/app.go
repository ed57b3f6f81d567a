package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/config"
	"github.com/five82/recast/internal/dashboard"
	"github.com/five82/recast/internal/jobs"
	"github.com/five82/recast/internal/prefs"
	"github.com/five82/recast/internal/session"
	"github.com/five82/recast/internal/state"
	"github.com/five82/recast/internal/upload"
)

// View represents the current active view.
type View int

const (
	ViewLogin View = iota
	ViewJobs
	ViewResults
	ViewUpload
	ViewActivity
)

// Backend is the part of the API client the views call directly. Job list
// fetches go through the poller and mutations through the dispatcher.
type Backend interface {
	dashboard.Source
	api.OutputFetcher
	upload.Uploader
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Session    *session.Store
	Backend    Backend
	Poller     *jobs.Poller
	Dispatcher *jobs.Dispatcher
	Config     config.Config
	Prefs      prefs.Prefs
	PrefsPath  string
	Tick       time.Duration
	Logger     zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	session    *session.Store
	backend    Backend
	poller     *jobs.Poller
	dispatcher *jobs.Dispatcher
	config     config.Config
	prefs      prefs.Prefs
	prefsPath  string
	tick       time.Duration
	log        zerolog.Logger
	keys       keyMap
	now        func() time.Time

	// UI state
	theme        Theme
	currentView  View
	width        int
	height       int
	ready        bool
	sessionReady bool
	showHelp     bool
	modal        Modal
	toasts       []toast

	// Jobs state
	snapshot    state.Snapshot
	selectedRow int
	overview    dashboard.Overview
	overviewOK  bool

	// Per-view state
	auth     authForm
	results  resultsState
	upload   uploadForm
	search   jobSearch
	activity activityState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:         ctx,
		session:     opts.Session,
		backend:     opts.Backend,
		poller:      opts.Poller,
		dispatcher:  opts.Dispatcher,
		config:      opts.Config,
		prefs:       opts.Prefs,
		prefsPath:   prefsPath,
		tick:        tick,
		log:         opts.Logger.With().Str("component", "ui").Logger(),
		keys:        DefaultKeyMap(),
		now:         time.Now,
		theme:       GetTheme(opts.Prefs.Theme),
		currentView: ViewLogin,
		auth:        newAuthForm(authLogin),
		upload:      newUploadForm(),
		search:      newJobSearch(),
		activity:    activityState{follow: true},
	}
	m.results.viewport = viewport.New(0, 0)
	m.activity.viewport = viewport.New(0, 0)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.tick),
		initSessionCmd(m.ctx, m.session),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeViewports()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case sessionReadyMsg:
		m.sessionReady = true
		if m.authenticated() {
			return m.switchView(ViewJobs)
		}
		return m, nil

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.clampSelection()
		return m, nil

	case authResultMsg:
		return m.handleAuthResult(msg)

	case logoutMsg:
		m = m.signedOut()
		m.notify(toastSuccess, msg.result.Message)
		return m, nil

	case overviewMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("dashboard load failed")
			m.notify(toastError, api.UserMessage(msg.err, dashboard.MsgLoadFailed))
			return m, nil
		}
		m.overview = msg.overview
		m.overviewOK = true
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, jobs.ErrRefreshInFlight) &&
			!errors.Is(msg.err, jobs.ErrStopped) && m.ctx.Err() == nil {
			m.notify(toastError, api.UserMessage(msg.err, MsgLoadJobsFailed))
		}
		return m, fetchSnapshotCmd(m.snapshotStore())

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case deleteDoneMsg:
		return m.handleDeleteDone(msg)

	case resultsMsg:
		m.handleResults(msg)
		return m, nil

	case fileSelectedMsg:
		return m.handleFileSelected(msg)

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case activityMsg:
		m.handleActivity(msg)
		return m, nil
	}

	return m.updateInputs(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if !m.sessionReady || (m.session != nil && m.session.Loading()) {
		return m.renderCentered("Restoring session...")
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

func (m Model) authenticated() bool {
	return m.session != nil && m.session.IsAuthenticated()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.stopPoller()
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	// Forms own every printable key.
	switch {
	case m.currentView == ViewLogin:
		return m.handleAuthKey(msg)
	case m.currentView == ViewUpload:
		return m.handleUploadKey(msg)
	case m.currentView == ViewJobs && m.search.active:
		return m.handleJobSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopPoller()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.ViewJobs):
		return m.switchView(ViewJobs)
	case key.Matches(msg, m.keys.ViewUpload):
		return m.switchView(ViewUpload)
	case key.Matches(msg, m.keys.ViewActivity):
		return m.switchView(ViewActivity)
	case key.Matches(msg, m.keys.Escape):
		if m.currentView == ViewJobs && m.search.query != "" {
			m.clearJobSearch()
			return m, nil
		}
		return m.switchView(ViewJobs)
	}

	switch m.currentView {
	case ViewJobs:
		return m.handleJobsKey(msg)
	case ViewResults:
		return m.handleResultsKey(msg)
	case ViewActivity:
		return m.handleActivityKey(msg)
	}
	return m, nil
}

// switchView moves to v. The job poller runs only while the jobs view is
// showing.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if v != ViewLogin && !m.authenticated() {
		v = ViewLogin
	}
	prev := m.currentView
	m.currentView = v

	if prev == ViewJobs && v != ViewJobs {
		m.stopPoller()
	}

	var cmds []tea.Cmd
	switch v {
	case ViewJobs:
		if prev != ViewJobs && m.poller != nil {
			m.poller.Start(m.ctx)
		}
		cmds = append(cmds, loadOverviewCmd(m.ctx, m.backend), fetchSnapshotCmd(m.snapshotStore()))
	case ViewActivity:
		cmds = append(cmds, readActivityCmd(m.config.LogPath()))
	case ViewUpload:
		m.upload.focusFirst()
	case ViewLogin:
		m.auth.focusFirst()
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) stopPoller() {
	if m.poller != nil {
		m.poller.Stop()
	}
}

func (m Model) snapshotStore() *state.Store {
	if m.poller == nil {
		return nil
	}
	return m.poller.Store()
}

// handleTick refreshes the snapshot, expires notifications and drops back to
// the login view if the session was invalidated behind our back.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.toasts = pruneToasts(m.toasts, now)
	cmds := []tea.Cmd{tickCmd(m.tick)}

	if m.sessionReady && m.currentView != ViewLogin && !m.authenticated() {
		m = m.signedOut()
		m.notify(toastError, MsgSessionExpired)
		return m, tea.Batch(cmds...)
	}

	switch m.currentView {
	case ViewJobs:
		cmds = append(cmds, fetchSnapshotCmd(m.snapshotStore()))
	case ViewActivity:
		if m.activity.follow {
			cmds = append(cmds, readActivityCmd(m.config.LogPath()))
		}
	}
	return m, tea.Batch(cmds...)
}

// signedOut resets per-user state and shows the login view.
func (m Model) signedOut() Model {
	m.stopPoller()
	if store := m.snapshotStore(); store != nil {
		store.Reset()
	}
	m.snapshot = state.Snapshot{}
	m.selectedRow = 0
	m.overview = dashboard.Overview{}
	m.overviewOK = false
	m.results = resultsState{viewport: m.results.viewport}
	m.modal = nil
	m.currentView = ViewLogin
	m.auth = newAuthForm(authLogin)
	m.search = newJobSearch()
	return m
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	m.stopPoller()
	store, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		return logoutMsg{result: store.Logout(ctx)}
	}
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.prefs.Theme = m.theme.Name
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warn().Err(err).Msg("save prefs failed")
	}
}

// updateInputs forwards non-key messages, such as cursor blinks, to the
// focused form.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewLogin:
		cmd = m.auth.update(msg)
	case ViewUpload:
		cmd = m.upload.update(msg)
	case ViewJobs:
		if m.search.active {
			m.search.input, cmd = m.search.input.Update(msg)
		}
	}
	return m, cmd
}

func (m *Model) resizeViewports() {
	h := max(m.contentHeight()-4, 1)
	w := max(m.width-4, 1)
	m.results.viewport.Width = w
	m.results.viewport.Height = h
	m.activity.viewport.Width = w
	m.activity.viewport.Height = max(m.contentHeight()-2, 1)
	m.refreshResultsViewport()
	m.refreshActivityViewport()
}

// contentHeight is the space left after the header, command bar and
// notification line.
func (m Model) contentHeight() int {
	return max(m.height-3, 3)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	if m.currentView == ViewLogin {
		return m.renderLogin()
	}
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderToasts())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewJobs:
		return m.renderJobs()
	case ViewResults:
		return m.renderResults()
	case ViewUpload:
		return m.renderUpload()
	case ViewActivity:
		return m.renderActivity()
	default:
		return ""
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.stopPoller()
	}
	return err
}
