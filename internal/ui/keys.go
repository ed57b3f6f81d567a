package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding
	Logout     key.Binding

	// View switching
	ViewJobs     key.Binding
	ViewUpload   key.Binding
	ViewActivity key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	// Job actions
	Search      key.Binding
	CycleFilter key.Binding
	Refresh     key.Binding
	CancelJob   key.Binding
	DeleteJob   key.Binding
	Open        key.Binding

	// Results actions
	NextTab    key.Binding
	PrevTab    key.Binding
	Export     key.Binding
	ExportAll  key.Binding
	Copy       key.Binding
	Regenerate key.Binding

	// Activity
	ToggleFollow key.Binding

	// Forms and dialogs
	NextField      key.Binding
	PrevField      key.Binding
	Toggle         key.Binding
	Submit         key.Binding
	SwitchAuthMode key.Binding
	Yes            key.Binding
	No             key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to jobs"),
		),
		Logout: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Sign out"),
		),

		ViewJobs: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Jobs"),
		),
		ViewUpload: key.NewBinding(
			key.WithKeys("2", "u"),
			key.WithHelp("2/u", "Upload"),
		),
		ViewActivity: key.NewBinding(
			key.WithKeys("3", "l"),
			key.WithHelp("3/l", "Activity log"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n/right", "Next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p/left", "Previous page"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search titles"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle status filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		CancelJob: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Cancel job"),
		),
		DeleteJob: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete job"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "View results"),
		),

		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next platform"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous platform"),
		),
		Export: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Save platform"),
		),
		ExportAll: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Save all"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Copy to clipboard"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Regenerate"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("Space", "Toggle platform"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Submit"),
		),
		SwitchAuthMode: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Sign in / register"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "Confirm"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "Dismiss"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewJobs, k.ViewUpload, k.ViewActivity, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.NextPage, k.PrevPage},
		{k.Search, k.CycleFilter, k.Refresh, k.CancelJob, k.DeleteJob, k.Open},
		{k.NextTab, k.PrevTab, k.Export, k.ExportAll, k.Copy, k.Regenerate},
		{k.ToggleFollow},
		{k.CycleTheme, k.Logout, k.Help, k.Quit},
	}
}
