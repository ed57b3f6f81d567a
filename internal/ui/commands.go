package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/dashboard"
	"github.com/five82/recast/internal/jobs"
	"github.com/five82/recast/internal/logtail"
	"github.com/five82/recast/internal/results"
	"github.com/five82/recast/internal/session"
	"github.com/five82/recast/internal/state"
	"github.com/five82/recast/internal/upload"
)

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type sessionReadyMsg struct{}

type authResultMsg struct {
	result session.Result
}

type logoutMsg struct {
	result session.Result
}

type overviewMsg struct {
	overview dashboard.Overview
	err      error
}

type refreshDoneMsg struct {
	err error
}

// actionDoneMsg reports a cancel, regenerate, export or copy.
type actionDoneMsg struct {
	success  string
	fallback string
	err      error
}

type deleteDoneMsg struct {
	confirm *jobs.DeleteConfirmation
	err     error
}

type resultsMsg struct {
	job     api.Job
	results results.Results
	err     error
}

type uploadDoneMsg struct {
	resp api.UploadResponse
	err  error
}

type activityMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func initSessionCmd(ctx context.Context, store *session.Store) tea.Cmd {
	return func() tea.Msg {
		if store != nil {
			store.Init(ctx)
		}
		return sessionReadyMsg{}
	}
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func loadOverviewCmd(ctx context.Context, src dashboard.Source) tea.Cmd {
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		overview, err := dashboard.Load(ctx, src)
		return overviewMsg{overview: overview, err: err}
	}
}

// pollerCmd runs one of the poller's query operations off the update loop.
func pollerCmd(ctx context.Context, op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return refreshDoneMsg{err: op(ctx)}
	}
}

func readActivityCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, ActivityLineLimit)
		return activityMsg{entries: entries, err: err}
	}
}

func fetchResultsCmd(ctx context.Context, fetcher api.OutputFetcher, job api.Job) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		r, err := results.Fetch(ctx, fetcher, job)
		return resultsMsg{job: job, results: r, err: err}
	}
}

// uploadCmd reads the file at path into req and submits it.
func uploadCmd(ctx context.Context, up upload.Uploader, path string, req api.UploadRequest) tea.Cmd {
	return func() tea.Msg {
		loaded, err := upload.LoadFile(path)
		if err != nil {
			return uploadDoneMsg{err: err}
		}
		req.File = loaded.File
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		resp, err := upload.Submit(ctx, up, req)
		return uploadDoneMsg{resp: resp, err: err}
	}
}
