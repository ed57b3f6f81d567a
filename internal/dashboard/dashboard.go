// Package dashboard loads the overview shown after sign-in.
package dashboard

import (
	"context"
	"sync"

	"github.com/five82/recast/internal/api"
)

// RecentLimit is how many jobs the overview lists.
const RecentLimit = 5

// MsgLoadFailed is the notification shown when either request fails.
const MsgLoadFailed = "Failed to load dashboard data"

// Source is the subset of the API client the dashboard needs.
type Source interface {
	Analytics(ctx context.Context) (api.Analytics, error)
	api.JobLister
}

// Overview is the dashboard's data.
type Overview struct {
	Analytics api.Analytics
	Recent    []api.Job
}

// Load fetches analytics and the most recent jobs concurrently. If either
// request fails the first error is returned and the overview is empty.
func Load(ctx context.Context, src Source) (Overview, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		analytics api.Analytics
		recent    api.JobList
		errOnce   sync.Once
		firstErr  error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		a, err := src.Analytics(ctx)
		if err != nil {
			fail(err)
			return
		}
		analytics = a
	}()
	go func() {
		defer wg.Done()
		list, err := src.ListJobs(ctx, api.JobQuery{Page: 1, Limit: RecentLimit})
		if err != nil {
			fail(err)
			return
		}
		recent = list
	}()
	wg.Wait()

	if firstErr != nil {
		return Overview{}, firstErr
	}
	return Overview{Analytics: analytics, Recent: recent.Items}, nil
}
