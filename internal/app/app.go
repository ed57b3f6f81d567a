package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/config"
	"github.com/five82/recast/internal/jobs"
	"github.com/five82/recast/internal/localstore"
	"github.com/five82/recast/internal/logging"
	"github.com/five82/recast/internal/prefs"
	"github.com/five82/recast/internal/session"
	"github.com/five82/recast/internal/state"
	"github.com/five82/recast/internal/ui"
)

// Options configure the recast application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/recast/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	Verbose    bool   // log to Stderr as well as the log file

	Stdout io.Writer
	Stderr io.Writer
}

// ErrUsage marks a bad command line. The caller prints usage and exits 2.
var ErrUsage = errors.New("usage")

// Run executes the subcommand named by args[0], or the TUI when args is
// empty.
func Run(ctx context.Context, opts Options, args []string) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	name := "tui"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}

	rt, err := open(ctx, opts, name != "tui" && opts.Verbose)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.log.Debug().Str("command", name).Str("api_url", rt.cfg.APIURL).Msg("starting")
	if err := cmd(ctx, rt, args); err != nil {
		if !errors.Is(err, ErrUsage) {
			rt.log.Error().Err(err).Str("command", name).Msg("command failed")
		}
		return err
	}
	return nil
}

// runtime holds the wired dependencies shared by every command.
type runtime struct {
	opts    Options
	cfg     config.Config
	prefs   prefs.Prefs
	log     zerolog.Logger
	session *session.Store
	client  *api.Client
	closers []io.Closer
}

func open(ctx context.Context, opts Options, console bool) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	logOpts := logging.Options{File: cfg.LogPath(), Level: cfg.LogLevel}
	if console {
		logOpts.Console = opts.Stderr
	}
	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	rt := &runtime{opts: opts, cfg: cfg, log: logger, closers: []io.Closer{logCloser}}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	rt.prefs = userPrefs

	storage, err := localstore.OpenSQLite(cfg.SessionDBPath())
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	rt.closers = append(rt.closers, storage)

	rt.session = session.New(storage, nil, logger)
	client, err := api.NewClient(cfg.APIURL,
		api.WithTokenSource(rt.session),
		api.WithTimeout(cfg.RequestTimeout),
		api.OnUnauthorized(rt.session.Invalidate),
	)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	rt.session.SetAuthenticator(client)
	rt.client = client

	rt.session.Init(ctx)
	return rt, nil
}

// close releases storage and the log file, newest first.
func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
	rt.closers = nil
}

// newPoller builds the job list poller for the user's saved filter.
func (rt *runtime) newPoller(query api.JobQuery) *jobs.Poller {
	return jobs.NewPoller(rt.client, state.NewStore(query), jobs.PollerOptions{
		Interval: rt.cfg.PollInterval,
		Logger:   rt.log,
	})
}

func runTUI(ctx context.Context, rt *runtime, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: tui takes no arguments", ErrUsage)
	}
	poller := rt.newPoller(rt.prefs.Query())
	defer poller.Stop()
	dispatcher := jobs.NewDispatcher(rt.client, poller, rt.log)

	return ui.Run(ui.Options{
		Context:    ctx,
		Session:    rt.session,
		Backend:    rt.client,
		Poller:     poller,
		Dispatcher: dispatcher,
		Config:     rt.cfg,
		Prefs:      rt.prefs,
		PrefsPath:  rt.opts.PrefsPath,
		Logger:     rt.log,
	})
}
