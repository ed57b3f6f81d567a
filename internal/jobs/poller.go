package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/state"
)

// DefaultPollInterval is the cadence of background refreshes.
const DefaultPollInterval = 10 * time.Second

var (
	// ErrRefreshInFlight is returned by Refresh while another fetch is running.
	ErrRefreshInFlight = errors.New("refresh already in flight")
	// ErrStopped is returned by manual fetches on a poller that is not running.
	ErrStopped = errors.New("poller stopped")
)

// PollerOptions configure a Poller.
type PollerOptions struct {
	Interval time.Duration // zero uses DefaultPollInterval
	Clock    Clock         // nil uses the wall clock
	Logger   zerolog.Logger
}

// Poller keeps a state.Store current for one job list view.
//
// The timer path only fetches when the latest snapshot still has pending or
// processing jobs, and it fetches sequentially so timer fetches never overlap.
// Stop releases the ticker and cancels any request started through the
// poller, so nothing updates the store after the view is gone. Manual fetches
// on a stopped poller fail with ErrStopped without touching the store.
type Poller struct {
	lister   api.JobLister
	store    *state.Store
	interval time.Duration
	clock    Clock
	log      zerolog.Logger

	mu      sync.Mutex
	loopCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	inflight    atomic.Int32
	tickFetches atomic.Int64

	// onTick is called after every timer tick with whether it fetched.
	onTick func(fetched bool)
}

// NewPoller builds a Poller that writes into store.
func NewPoller(lister api.JobLister, store *state.Store, opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Poller{
		lister:   lister,
		store:    store,
		interval: interval,
		clock:    clock,
		log:      opts.Logger.With().Str("component", "poller").Logger(),
	}
}

// Store returns the store the poller writes into.
func (p *Poller) Store() *state.Store {
	return p.store
}

// Start issues an immediate blocking fetch and arms the ticker. It returns
// immediately; calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.loopCtx, p.cancel, p.done = loopCtx, cancel, done
	ticker := p.clock.NewTicker(p.interval)
	p.mu.Unlock()

	go p.run(loopCtx, ticker, done)
}

func (p *Poller) run(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	p.inflight.Add(1)
	gen, query := p.store.BeginCurrent(false)
	_ = p.fetch(ctx, gen, query)
	p.inflight.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			fetched := p.tick(ctx)
			if p.onTick != nil {
				p.onTick(fetched)
			}
		}
	}
}

// tick reads the current snapshot, not one captured when the ticker was
// armed, and fetches silently only if work is still in flight server-side.
func (p *Poller) tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if !p.store.Snapshot().HasActive() {
		return false
	}
	if !p.inflight.CompareAndSwap(0, 1) {
		p.log.Debug().Msg("skipping tick, fetch already in flight")
		return false
	}
	defer p.inflight.Add(-1)

	p.tickFetches.Add(1)
	gen, query := p.store.BeginCurrent(true)
	_ = p.fetch(ctx, gen, query)
	return true
}

// Stop cancels the loop and any in-flight request, releases the ticker and
// waits for the loop to exit. It is safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done, p.loopCtx = nil, nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the ticker is armed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// TickFetches returns how many fetches the timer path has issued.
func (p *Poller) TickFetches() int64 {
	return p.tickFetches.Load()
}

// Refresh is the manual refresh path. It returns ErrRefreshInFlight instead of
// starting a second concurrent fetch.
func (p *Poller) Refresh(ctx context.Context, silent bool) error {
	if !p.inflight.CompareAndSwap(0, 1) {
		return ErrRefreshInFlight
	}
	defer p.inflight.Add(-1)

	ctx, release, err := p.bind(ctx)
	if err != nil {
		return err
	}
	defer release()
	gen, query := p.store.BeginCurrent(silent)
	return p.fetch(ctx, gen, query)
}

// Sync runs a silent fetch even if another fetch is in flight. It is used
// after mutations, whose effect an already running fetch may predate.
func (p *Poller) Sync(ctx context.Context) error {
	p.inflight.Add(1)
	defer p.inflight.Add(-1)

	ctx, release, err := p.bind(ctx)
	if err != nil {
		return err
	}
	defer release()
	gen, query := p.store.BeginCurrent(true)
	return p.fetch(ctx, gen, query)
}

// SetStatusFilter changes the status filter, resets to page 1 and fetches
// immediately. An empty status shows every job.
func (p *Poller) SetStatusFilter(ctx context.Context, status api.JobStatus) error {
	query := p.store.Query()
	query.Status = status
	query.Page = 1
	return p.requery(ctx, query)
}

// SetPage moves to page and fetches immediately.
func (p *Poller) SetPage(ctx context.Context, page int) error {
	query := p.store.Query()
	if page < 1 {
		page = 1
	}
	query.Page = page
	return p.requery(ctx, query)
}

// SetLimit changes the page size, resets to page 1 and fetches immediately.
func (p *Poller) SetLimit(ctx context.Context, limit int) error {
	query := p.store.Query()
	query.Limit = limit
	query.Page = 1
	return p.requery(ctx, query)
}

func (p *Poller) requery(ctx context.Context, query api.JobQuery) error {
	p.inflight.Add(1)
	defer p.inflight.Add(-1)

	ctx, release, err := p.bind(ctx)
	if err != nil {
		return err
	}
	defer release()
	gen := p.store.Begin(query, false)
	return p.fetch(ctx, gen, query.Normalized())
}

// bind ties ctx to the poller's lifetime so Stop aborts manual fetches too.
// It returns ErrStopped when the poller is not running.
func (p *Poller) bind(ctx context.Context) (context.Context, func(), error) {
	p.mu.Lock()
	loopCtx := p.loopCtx
	p.mu.Unlock()

	if loopCtx == nil || loopCtx.Err() != nil {
		return nil, nil, ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(loopCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

func (p *Poller) fetch(ctx context.Context, gen uint64, query api.JobQuery) error {
	list, err := p.lister.ListJobs(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			p.store.Abort(gen)
			return ctx.Err()
		}
		p.store.Fail(gen, err)
		p.log.Warn().Err(err).Int("page", query.Page).Str("status", string(query.Status)).Msg("job list fetch failed")
		return err
	}
	if ctx.Err() != nil {
		p.store.Abort(gen)
		return ctx.Err()
	}
	if !p.store.Apply(gen, list) {
		p.log.Debug().Uint64("generation", gen).Msg("dropped superseded job list")
	}
	return nil
}
