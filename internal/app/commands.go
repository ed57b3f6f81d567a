package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/five82/recast/internal/api"
	"github.com/five82/recast/internal/jobs"
	"github.com/five82/recast/internal/results"
	"github.com/five82/recast/internal/upload"
)

type command func(ctx context.Context, rt *runtime, args []string) error

var commands = map[string]command{
	"tui":      runTUI,
	"login":    runLogin,
	"register": runRegister,
	"logout":   runLogout,
	"whoami":   runWhoami,
	"jobs":     runJobs,
	"cancel":   runCancel,
	"delete":   runDelete,
	"upload":   runUpload,
	"export":   runExport,
}

// Usage lists the subcommands.
const Usage = `Usage: recast [flags] [command] [args]

Commands:
  tui                         interactive dashboard (default)
  login -email E [-password P]
  register -email E -name N [-password P]
  logout
  whoami
  jobs [-status S] [-page N] [-limit N]
  cancel JOB_ID
  delete [-yes] JOB_ID
  upload [-title T] [-platforms linkedin,twitter,blog] FILE
  export [-platform P] [-dir DIR] JOB_ID

The password defaults to $RECAST_PASSWORD.
`

var errNotSignedIn = errors.New("not signed in, run: recast login")

func newFlagSet(rt *runtime, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(rt.opts.Stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func (rt *runtime) requireSession() error {
	if !rt.session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func (rt *runtime) printf(format string, args ...any) {
	fmt.Fprintf(rt.opts.Stdout, format, args...)
}

// singleArg returns the only positional argument.
func singleArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s expects %s", ErrUsage, fs.Name(), what)
	}
	return strings.TrimSpace(fs.Arg(0)), nil
}

func runLogin(ctx context.Context, rt *runtime, args []string) error {
	fs := newFlagSet(rt, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("RECAST_PASSWORD"), "account password")
	if err := parse(fs, args); err != nil {
		return err
	}
	res := rt.session.Login(ctx, *email, *password)
	if !res.OK {
		return errors.New(res.Message)
	}
	rt.printf("%s\n", res.Message)
	return nil
}

func runRegister(ctx context.Context, rt *runtime, args []string) error {
	fs := newFlagSet(rt, "register")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "full name")
	password := fs.String("password", os.Getenv("RECAST_PASSWORD"), "account password")
	if err := parse(fs, args); err != nil {
		return err
	}
	res := rt.session.Register(ctx, *email, *password, *name)
	if !res.OK {
		return errors.New(res.Message)
	}
	rt.printf("%s\n", res.Message)
	return nil
}

func runLogout(ctx context.Context, rt *runtime, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: logout takes no arguments", ErrUsage)
	}
	res := rt.session.Logout(ctx)
	rt.printf("%s\n", res.Message)
	return nil
}

func runWhoami(ctx context.Context, rt *runtime, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: whoami takes no arguments", ErrUsage)
	}
	if err := rt.requireSession(); err != nil {
		return err
	}
	user, err := rt.client.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return errNotSignedIn
		}
		return fmt.Errorf("fetch profile: %w", err)
	}
	if user.FullName != "" {
		rt.printf("%s <%s>\n", user.FullName, user.Email)
	} else {
		rt.printf("%s\n", user.Email)
	}
	rt.printf("id: %s\n", user.ID)
	return nil
}

func runJobs(ctx context.Context, rt *runtime, args []string) error {
	query := rt.prefs.Query()
	fs := newFlagSet(rt, "jobs")
	status := fs.String("status", string(query.Status), "status filter (empty for all)")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", query.Limit, "jobs per page")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := rt.requireSession(); err != nil {
		return err
	}

	query.Status = api.JobStatus(strings.ToLower(strings.TrimSpace(*status)))
	if query.Status != "" && !query.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrUsage, *status)
	}
	query.Page = *page
	query.Limit = *limit

	list, err := rt.client.ListJobs(ctx, query)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(list.Items) == 0 {
		rt.printf("No jobs found\n")
		return nil
	}

	tw := tabwriter.NewWriter(rt.opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tTITLE\tCREATED")
	for _, job := range list.Items {
		created := ""
		if t := job.ParsedCreatedAt(); !t.IsZero() {
			created = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\n",
			job.ID, job.Status.Label(), job.ProgressPercentage, job.DisplayTitle(), created)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	rt.printf("page %d/%d · %d total\n", max(list.Page, 1), max(list.Pages, 1), list.Total)
	return nil
}

// lookupJob fetches a job by id for the one-shot job commands.
func (rt *runtime) lookupJob(ctx context.Context, fs *flag.FlagSet) (api.Job, error) {
	id, err := singleArg(fs, "a job id")
	if err != nil {
		return api.Job{}, err
	}
	if err := rt.requireSession(); err != nil {
		return api.Job{}, err
	}
	job, err := rt.client.GetJob(ctx, id)
	if err != nil {
		return api.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func runCancel(ctx context.Context, rt *runtime, args []string) error {
	fs := newFlagSet(rt, "cancel")
	if err := parse(fs, args); err != nil {
		return err
	}
	job, err := rt.lookupJob(ctx, fs)
	if err != nil {
		return err
	}
	d := jobs.NewDispatcher(rt.client, nil, rt.log)
	if err := d.Cancel(ctx, job); err != nil {
		return err
	}
	rt.printf("Job cancelled successfully\n")
	return nil
}

func runDelete(ctx context.Context, rt *runtime, args []string) error {
	fs := newFlagSet(rt, "delete")
	yes := fs.Bool("yes", false, "delete without asking")
	if err := parse(fs, args); err != nil {
		return err
	}
	job, err := rt.lookupJob(ctx, fs)
	if err != nil {
		return err
	}
	d := jobs.NewDispatcher(rt.client, nil, rt.log)
	confirm, err := d.RequestDelete(job)
	if err != nil {
		return err
	}
	if !*yes {
		confirm.Dismiss()
		rt.printf("%s\n", confirm.Prompt())
		return fmt.Errorf("%w: pass -yes to delete", ErrUsage)
	}
	if err := confirm.Confirm(ctx); err != nil {
		return err
	}
	rt.printf("Job deleted successfully\n")
	return nil
}

func runUpload(ctx context.Context, rt *runtime, args []string) error {
	fs := newFlagSet(rt, "upload")
	title := fs.String("title", "", "optional title")
	platforms := fs.String("platforms", "linkedin,twitter,blog", "comma separated target platforms")
	if err := parse(fs, args); err != nil {
		return err
	}
	path, err := singleArg(fs, "a file")
	if err != nil {
		return err
	}
	if err := rt.requireSession(); err != nil {
		return err
	}

	req, err := upload.LoadFile(path)
	if err != nil {
		return err
	}
	req.Title = *title
	req.Preferences = map[string]any{}
	for _, p := range strings.Split(*platforms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			req.Platforms = append(req.Platforms, api.Platform(p))
		}
	}

	resp, err := upload.Submit(ctx, rt.client, req)
	if err != nil {
		return err
	}
	rt.printf("%s\njob: %s\n", upload.MsgSuccess, resp.JobID)
	return nil
}

func runExport(ctx context.Context, rt *runtime, args []string) error {
	fs := newFlagSet(rt, "export")
	platform := fs.String("platform", "", "export one platform instead of the whole job")
	dir := fs.String("dir", rt.cfg.DownloadDir, "output directory")
	if err := parse(fs, args); err != nil {
		return err
	}
	job, err := rt.lookupJob(ctx, fs)
	if err != nil {
		return err
	}

	res, err := results.Fetch(ctx, rt.client, job)
	if err != nil {
		return err
	}
	if !res.Found() {
		return fmt.Errorf("no results found for job %s", job.ID)
	}

	var name, text string
	if *platform != "" {
		p, ok := api.ParsePlatform(*platform)
		if !ok {
			return fmt.Errorf("%w: unknown platform %q", ErrUsage, *platform)
		}
		out, ok := res.Outputs[p]
		if !ok {
			return fmt.Errorf("job %s has no %s output", job.ID, p.Label())
		}
		name = results.PlatformFileName(p)
		text = results.ExportText(p, out.Content)
	} else {
		name = results.JobFileName(job.ID)
		text = results.ExportJob(res, time.Now())
	}

	path, err := results.Save(*dir, name, text)
	if err != nil {
		return err
	}
	rt.printf("Results downloaded successfully: %s\n", path)
	return nil
}
