package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/state"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) last() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

type fakeLister struct {
	mu      sync.Mutex
	lists   []api.JobList // returned in order; the last one repeats
	err     error
	queries []api.JobQuery
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeLister) ListJobs(ctx context.Context, q api.JobQuery) (api.JobList, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	n := len(f.queries)
	var list api.JobList
	if len(f.lists) > 0 {
		list = f.lists[min(n-1, len(f.lists)-1)]
	}
	err, gate, entered := f.err, f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return api.JobList{}, ctx.Err()
		}
	}
	return list, err
}

func (f *fakeLister) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeLister) lastQuery() api.JobQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeLister) setGate(gate, entered chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate, f.entered = gate, entered
}

func listOf(statuses ...api.JobStatus) api.JobList {
	items := make([]api.Job, len(statuses))
	for i, st := range statuses {
		items[i] = api.Job{ID: string(rune('a' + i)), Status: st}
	}
	return api.JobList{Items: items, Total: len(items)}
}

func newTestPoller(lister *fakeLister) (*Poller, *fakeClock, chan bool) {
	clock := &fakeClock{}
	p := NewPoller(lister, state.NewStore(api.JobQuery{}), PollerOptions{Clock: clock, Logger: zerolog.Nop()})
	ticks := make(chan bool, 16)
	p.onTick = func(fetched bool) { ticks <- fetched }
	return p, clock, ticks
}

func tick(t *testing.T, clock *fakeClock, ticks chan bool) bool {
	t.Helper()
	select {
	case clock.last().ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("poll loop did not accept tick")
	}
	select {
	case fetched := <-ticks:
		return fetched
	case <-time.After(2 * time.Second):
		t.Fatalf("tick was not processed")
	}
	return false
}

func waitForInitial(t *testing.T, p *Poller, lister *fakeLister) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lister.calls() == 1 && !p.Store().Snapshot().Loading {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("initial fetch did not complete")
}

func TestPoller_NoTickFetchesWhenAllTerminal(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{listOf(api.StatusCompleted, api.StatusFailed, api.StatusCancelled)}}
	p, clock, ticks := newTestPoller(lister)
	p.Start(context.Background())
	defer p.Stop()

	for i := 0; i < 5; i++ {
		if tick(t, clock, ticks) {
			t.Fatalf("tick %d fetched with only terminal jobs", i)
		}
	}
	if got := lister.calls(); got != 1 {
		t.Fatalf("ListJobs calls = %d, want 1 (initial fetch only)", got)
	}
	if p.TickFetches() != 0 {
		t.Fatalf("TickFetches = %d, want 0", p.TickFetches())
	}
}

func TestPoller_OneFetchPerTickWhileActive(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{listOf(api.StatusPending, api.StatusCompleted)}}
	p, clock, ticks := newTestPoller(lister)
	p.Start(context.Background())
	defer p.Stop()

	for i := 0; i < 3; i++ {
		if !tick(t, clock, ticks) {
			t.Fatalf("tick %d skipped with a pending job", i)
		}
	}
	if got := lister.calls(); got != 4 {
		t.Fatalf("ListJobs calls = %d, want 4", got)
	}
	if p.TickFetches() != 3 {
		t.Fatalf("TickFetches = %d, want 3", p.TickFetches())
	}
	if snap := p.Store().Snapshot(); snap.Refreshing || snap.Loading {
		t.Fatalf("flags left set: %#v", snap)
	}
}

func TestPoller_StopsFetchingOnceJobsFinish(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{
		listOf(api.StatusProcessing),
		listOf(api.StatusCompleted),
	}}
	p, clock, ticks := newTestPoller(lister)
	p.Start(context.Background())
	defer p.Stop()

	if !tick(t, clock, ticks) {
		t.Fatalf("first tick should fetch while processing")
	}
	if tick(t, clock, ticks) {
		t.Fatalf("second tick should see the completed snapshot and skip")
	}
	if got := lister.calls(); got != 2 {
		t.Fatalf("ListJobs calls = %d, want 2", got)
	}
}

func TestPoller_ManualRefreshRejectedWhileTickInFlight(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{listOf(api.StatusPending)}}
	p, clock, ticks := newTestPoller(lister)
	p.Start(context.Background())
	defer p.Stop()

	waitForInitial(t, p, lister)
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	lister.setGate(gate, entered)
	select {
	case clock.last().ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("poll loop did not accept tick")
	}
	<-entered

	if err := p.Refresh(context.Background(), false); !errors.Is(err, ErrRefreshInFlight) {
		t.Fatalf("Refresh = %v, want ErrRefreshInFlight", err)
	}
	close(gate)
	if fetched := <-ticks; !fetched {
		t.Fatalf("tick reported no fetch")
	}

	lister.setGate(nil, nil)
	if err := p.Refresh(context.Background(), false); err != nil {
		t.Fatalf("Refresh after tick = %v", err)
	}
	if got := lister.calls(); got != 3 {
		t.Fatalf("ListJobs calls = %d, want 3", got)
	}
}

func TestPoller_StopReleasesTickerAndCancelsFetch(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{listOf(api.StatusPending)}}
	p, clock, _ := newTestPoller(lister)
	p.Start(context.Background())
	waitForInitial(t, p, lister)

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	lister.setGate(gate, entered)
	ticker := clock.last()
	ticker.ch <- time.Now()
	<-entered

	p.Stop()
	if !ticker.stopped.Load() {
		t.Fatalf("ticker not stopped")
	}
	if p.Running() {
		t.Fatalf("Running() = true after Stop")
	}
	snap := p.Store().Snapshot()
	if snap.LastError != nil || snap.Refreshing {
		t.Fatalf("cancelled fetch touched state: %#v", snap)
	}

	calls := lister.calls()
	select {
	case ticker.ch <- time.Now():
		t.Fatalf("tick accepted after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	if lister.calls() != calls {
		t.Fatalf("fetch issued after Stop")
	}
	p.Stop()
}

func TestPoller_FilterResetsPage(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{listOf(api.StatusFailed)}}
	p, _, _ := newTestPoller(lister)
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()
	waitForInitial(t, p, lister)

	if err := p.SetPage(ctx, 3); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if q := lister.lastQuery(); q.Page != 3 || q.Status != "" {
		t.Fatalf("query = %#v, want page 3", q)
	}

	if err := p.SetStatusFilter(ctx, api.StatusFailed); err != nil {
		t.Fatalf("SetStatusFilter: %v", err)
	}
	q := lister.lastQuery()
	if q.Page != 1 || q.Status != api.StatusFailed || q.Limit != api.DefaultPageLimit {
		t.Fatalf("query = %#v, want page 1 failed", q)
	}
	if snap := p.Store().Snapshot(); snap.Query != q || len(snap.Jobs) != 1 {
		t.Fatalf("snapshot = %#v", snap)
	}

	if err := p.SetPage(ctx, 0); err != nil {
		t.Fatalf("SetPage(0): %v", err)
	}
	if q := lister.lastQuery(); q.Page != 1 || q.Status != api.StatusFailed {
		t.Fatalf("query = %#v, want clamped page with filter kept", q)
	}
}

func TestPoller_LimitResetsPageKeepsFilter(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{listOf(api.StatusCompleted)}}
	p, _, _ := newTestPoller(lister)
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()
	waitForInitial(t, p, lister)

	if err := p.SetStatusFilter(ctx, api.StatusCompleted); err != nil {
		t.Fatalf("SetStatusFilter: %v", err)
	}
	if err := p.SetPage(ctx, 4); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if err := p.SetLimit(ctx, 50); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	q := lister.lastQuery()
	if q.Page != 1 || q.Limit != 50 || q.Status != api.StatusCompleted {
		t.Fatalf("query = %#v, want page 1 limit 50 completed", q)
	}

	if err := p.SetLimit(ctx, 500); err != nil {
		t.Fatalf("SetLimit(500): %v", err)
	}
	if q := lister.lastQuery(); q.Limit != api.MaxPageLimit {
		t.Fatalf("limit = %d, want clamped to %d", q.Limit, api.MaxPageLimit)
	}
}

func TestPoller_RefreshFailureRecorded(t *testing.T) {
	lister := &fakeLister{err: errors.New("dial tcp: connection refused")}
	p, _, _ := newTestPoller(lister)
	p.Start(context.Background())
	defer p.Stop()
	waitForInitial(t, p, lister)

	if err := p.Refresh(context.Background(), true); err == nil {
		t.Fatalf("Refresh returned nil error")
	}
	snap := p.Store().Snapshot()
	if snap.LastError == nil || snap.ConsecutiveFailures != 2 {
		t.Fatalf("snapshot = %#v, want recorded failure", snap)
	}
}

func TestPoller_SyncWinsOverOlderInFlightFetch(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{
		listOf(api.StatusCompleted),
		listOf(api.StatusCompleted),
		listOf(),
	}}
	p, _, _ := newTestPoller(lister)
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()
	waitForInitial(t, p, lister)

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	lister.setGate(gate, entered)
	refreshed := make(chan error, 1)
	go func() { refreshed <- p.Refresh(ctx, true) }()
	<-entered
	lister.setGate(nil, nil)

	// The job was deleted while the refresh above was waiting on the server.
	if err := p.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n := len(p.Store().Snapshot().Jobs); n != 0 {
		t.Fatalf("after Sync: %d jobs, want 0", n)
	}

	close(gate)
	if err := <-refreshed; err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := p.Store().Snapshot()
	if len(snap.Jobs) != 0 || snap.Refreshing {
		t.Fatalf("snapshot = %#v, want the post-delete list kept", snap)
	}
}

func TestPoller_ManualFetchesAfterStop(t *testing.T) {
	lister := &fakeLister{lists: []api.JobList{listOf(api.StatusPending)}}
	p, _, _ := newTestPoller(lister)
	ctx := context.Background()

	if err := p.Refresh(ctx, false); !errors.Is(err, ErrStopped) {
		t.Fatalf("Refresh before Start = %v, want ErrStopped", err)
	}

	p.Start(ctx)
	waitForInitial(t, p, lister)
	p.Stop()

	if err := p.Refresh(ctx, false); !errors.Is(err, ErrStopped) {
		t.Fatalf("Refresh after Stop = %v, want ErrStopped", err)
	}
	if err := p.Sync(ctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("Sync after Stop = %v, want ErrStopped", err)
	}
	if err := p.SetPage(ctx, 2); !errors.Is(err, ErrStopped) {
		t.Fatalf("SetPage after Stop = %v, want ErrStopped", err)
	}
	if got := lister.calls(); got != 1 {
		t.Fatalf("ListJobs calls = %d, want 1", got)
	}
	snap := p.Store().Snapshot()
	if snap.Query.Page != 1 || snap.Loading || snap.Refreshing {
		t.Fatalf("snapshot = %#v, want store untouched after Stop", snap)
	}

	p.Start(ctx)
	defer p.Stop()
	if err := p.Refresh(ctx, false); err != nil && !errors.Is(err, ErrRefreshInFlight) {
		t.Fatalf("Refresh after restart = %v", err)
	}
}
