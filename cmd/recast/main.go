package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/recast/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	pollSeconds := flag.Int("poll", 0, "job refresh interval in seconds (optional, defaults to config)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	verbose := flag.Bool("v", false, "log to stderr as well as the log file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), app.Usage)
		fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Verbose:    *verbose,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "recast: %v\n", err)
		if errors.Is(err, app.ErrUsage) {
			flag.Usage()
			return 2
		}
		return 1
	}
	return 0
}
