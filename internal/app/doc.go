// Package app provides the orchestration layer for the recast client.
//
// # Overview
//
// This package wires together configuration, logging, session storage, the
// API client, job polling and the UI. It is the composition root: every
// dependency is built here and handed down, and nothing below it reaches for
// globals.
//
// # Architecture
//
// Run follows the same steps for every command:
//
//  1. Load config from ~/.config/recast/config.toml, .env and RECAST_* vars
//  2. Open the JSON log file under the log dir (plus stderr with -v)
//  3. Open the SQLite session store and restore any persisted session
//  4. Build the API client with the session as its token source; a 401 from
//     any request invalidates the session
//  5. Dispatch to the subcommand, or start the TUI when none is given
//
// # Components
//
//   - app.go: Run, dependency wiring and the TUI entry point
//   - commands.go: one-shot subcommands (login, jobs, upload, export, ...)
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()          Read config and env overrides
//	       ├─────> logging.New()          JSON lines to recast.log
//	       ├─────> localstore.OpenSQLite() Durable session storage
//	       ├─────> session.New()/Init()   Restore the signed-in user
//	       ├─────> api.NewClient()        Bearer token from the session
//	       └─────> command                tui blocks in ui.Run()
//
// # Polling Behavior
//
// The TUI owns one jobs.Poller. It runs only while the jobs view is showing
// and only fetches on its timer while some listed job is pending or
// processing. Cancel and delete go through a jobs.Dispatcher that re-syncs
// the poller after each successful mutation.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Config file unreadable or invalid
//   - Log file or session database cannot be opened
//   - Command failures, already normalized for display
//
// Bad command lines wrap ErrUsage so the caller can print Usage.
//
// # Usage Example
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	opts := app.Options{PollEvery: 5}
//	if err := app.Run(ctx, opts, []string{"jobs", "-status", "processing"}); err != nil {
//		log.Fatalf("recast failed: %v", err)
//	}
package app
