// Package ui provides the terminal user interface for recast.
//
// # Architecture Overview
//
// The UI is a single Bubble Tea program. Model holds every view's state and
// never blocks: requests run as tea.Cmd functions and report back through
// messages. A one-second tick re-reads the job snapshot the poller writes
// into state.Store, expires notifications and follows the activity log.
//
// # Package Structure
//
//   - app.go: Model, view switching, the tick loop and Run
//   - commands.go: messages and the commands that produce them
//   - login.go: sign-in and registration form
//   - header.go: status line and command bar
//   - jobs.go: job table, detail pane, cancel and delete
//   - modal.go: delete confirmation dialog
//   - results.go: per-platform results viewer, export and copy
//   - upload_view.go: upload form
//   - activity.go: tail of the client log
//   - toast.go: transient notifications
//   - theme.go, style_helpers.go: colors and lipgloss helpers
//
// # Views
//
//   - Login: shown until the session store reports a signed-in user
//   - Jobs: paginated job list with status filter, analytics in the header
//   - Results: generated content of a completed job, one tab per platform
//   - Upload: file, title and platform selection
//   - Activity: the client's own zerolog output
//
// # Event Flow
//
//  1. Init restores the persisted session; nothing but "Restoring session..."
//     renders until it finishes
//  2. Entering the jobs view starts the poller; leaving it stops the poller
//  3. Mutations go through jobs.Dispatcher, which refreshes the list when
//     they succeed
//  4. If the API rejects the token the session is invalidated and the next
//     tick returns to the login view
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context:    ctx,
//		Session:    sessions,
//		Backend:    client,
//		Poller:     poller,
//		Dispatcher: dispatcher,
//		Config:     cfg,
//		Prefs:      p,
//	})
//
// # Key Bindings
//
//   - 1, 2/u, 3/l: Jobs, upload, activity
//   - j/k, g/G: Move selection
//   - n/p: Next/previous page
//   - /: Filter the page by title (esc clears)
//   - f: Cycle status filter
//   - r: Refresh
//   - enter: View results of a completed job
//   - c, d: Cancel or delete the selected job
//   - tab, s/S, y, R: Results tabs, save, copy, regenerate
//   - T: Cycle theme
//   - O: Sign out
//   - q or Ctrl+C: Exit
package ui
