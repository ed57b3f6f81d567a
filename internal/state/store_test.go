package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/recast/internal/api"
)

func jobs(statuses ...api.JobStatus) []api.Job {
	out := make([]api.Job, len(statuses))
	for i, st := range statuses {
		out[i] = api.Job{ID: string(rune('a' + i)), Status: st, Platforms: []api.Platform{api.PlatformBlog}}
	}
	return out
}

func TestStore_ApplyAndSnapshotClone(t *testing.T) {
	s := NewStore(api.JobQuery{})

	before := time.Now()
	gen := s.Begin(api.JobQuery{}, false)
	if snap := s.Snapshot(); !snap.Loading || snap.Refreshing {
		t.Fatalf("flags = loading %v refreshing %v, want loading only", snap.Loading, snap.Refreshing)
	}
	if !s.Apply(gen, api.JobList{Items: jobs(api.StatusPending, api.StatusCompleted), Total: 2}) {
		t.Fatalf("Apply returned false for current generation")
	}

	snap := s.Snapshot()
	if len(snap.Jobs) != 2 || snap.Total != 2 {
		t.Fatalf("snapshot = %#v, want 2 jobs", snap)
	}
	if snap.Loading || snap.Refreshing {
		t.Fatalf("flags still set after Apply")
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.Query.Page != 1 || snap.Query.Limit != api.DefaultPageLimit {
		t.Fatalf("Query = %#v, want normalized defaults", snap.Query)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Jobs[0].ID = "zzz"
	snap.Jobs[0].Platforms[0] = api.PlatformEmail
	snap2 := s.Snapshot()
	if snap2.Jobs[0].ID != "a" || snap2.Jobs[0].Platforms[0] != api.PlatformBlog {
		t.Fatalf("Snapshot should deep-copy jobs; got %#v", snap2.Jobs[0])
	}
}

func TestStore_FailKeepsPreviousData(t *testing.T) {
	s := NewStore(api.JobQuery{})
	s.Apply(s.Begin(api.JobQuery{}, false), api.JobList{Items: jobs(api.StatusProcessing), Total: 1})

	origErr := errors.New("boom")
	gen, _ := s.BeginCurrent(true)
	if snap := s.Snapshot(); !snap.Refreshing || snap.Loading {
		t.Fatalf("silent fetch flags = loading %v refreshing %v", snap.Loading, snap.Refreshing)
	}
	s.Fail(gen, origErr)

	snap := s.Snapshot()
	if len(snap.Jobs) != 1 || snap.Total != 1 {
		t.Fatalf("jobs changed on error: %#v", snap.Jobs)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_SupersededQueryIsDropped(t *testing.T) {
	s := NewStore(api.JobQuery{})

	oldGen := s.Begin(api.JobQuery{Page: 1}, false)
	newGen := s.Begin(api.JobQuery{Page: 2}, false)

	if !s.Apply(newGen, api.JobList{Items: jobs(api.StatusFailed), Total: 30}) {
		t.Fatalf("Apply(newGen) = false")
	}
	if s.Apply(oldGen, api.JobList{Items: jobs(api.StatusPending, api.StatusPending), Total: 2}) {
		t.Fatalf("Apply(oldGen) = true, want stale result dropped")
	}
	if s.Fail(oldGen, errors.New("late")) {
		t.Fatalf("Fail(oldGen) = true, want stale failure dropped")
	}

	snap := s.Snapshot()
	if snap.Query.Page != 2 || len(snap.Jobs) != 1 || snap.Total != 30 || snap.LastError != nil {
		t.Fatalf("snapshot = %#v, want page 2 result", snap)
	}
	if snap.Loading {
		t.Fatalf("Loading = true after all fetches resolved")
	}
}

func TestStore_OlderFetchForSameQueryIsDropped(t *testing.T) {
	s := NewStore(api.JobQuery{})
	s.Apply(s.Begin(api.JobQuery{}, false), api.JobList{Items: jobs(api.StatusCompleted), Total: 1})

	before, _ := s.BeginCurrent(true)
	after, _ := s.BeginCurrent(true)
	if !s.Apply(after, api.JobList{}) {
		t.Fatalf("Apply(after) = false")
	}
	if s.Apply(before, api.JobList{Items: jobs(api.StatusCompleted), Total: 1}) {
		t.Fatalf("Apply(before) = true, want older result dropped")
	}
	if s.Fail(before, errors.New("late")) {
		t.Fatalf("Fail(before) = true, want older failure dropped")
	}

	snap := s.Snapshot()
	if len(snap.Jobs) != 0 || snap.Total != 0 || snap.LastError != nil {
		t.Fatalf("snapshot = %#v, want the newer empty list", snap)
	}
	if snap.Loading || snap.Refreshing {
		t.Fatalf("flags still set after all fetches resolved")
	}
}

func TestStore_BeginCurrentDoesNotResurrectOldQuery(t *testing.T) {
	s := NewStore(api.JobQuery{})
	s.Begin(api.JobQuery{Status: api.StatusFailed}, false)

	_, q := s.BeginCurrent(true)
	if q.Status != api.StatusFailed {
		t.Fatalf("BeginCurrent query = %#v, want current filter", q)
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	s := NewStore(api.JobQuery{})

	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store reports failures")
	}

	gen, _ := s.BeginCurrent(true)
	s.Fail(gen, errors.New("fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	gen, _ = s.BeginCurrent(true)
	s.Fail(gen, errors.New("fail 2"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	gen, _ = s.BeginCurrent(true)
	s.Apply(gen, api.JobList{})
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("success should reset failures")
	}
}

func TestSnapshot_HasActiveAndPages(t *testing.T) {
	tests := []struct {
		name string
		jobs []api.Job
		want bool
	}{
		{"empty", nil, false},
		{"terminal only", jobs(api.StatusCompleted, api.StatusFailed, api.StatusCancelled), false},
		{"pending", jobs(api.StatusCompleted, api.StatusPending), true},
		{"processing", jobs(api.StatusProcessing), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Snapshot{Jobs: tt.jobs}).HasActive(); got != tt.want {
				t.Fatalf("HasActive = %v, want %v", got, tt.want)
			}
		})
	}

	snap := Snapshot{Total: 41, Query: api.JobQuery{Limit: 20}}
	if snap.Pages() != 3 {
		t.Fatalf("Pages = %d, want 3", snap.Pages())
	}
	if (Snapshot{}).Pages() != 1 {
		t.Fatalf("empty Pages should be 1")
	}
}

func TestStore_ResetDropsInFlight(t *testing.T) {
	s := NewStore(api.JobQuery{Status: api.StatusPending})
	gen, _ := s.BeginCurrent(false)
	s.Reset()
	if s.Apply(gen, api.JobList{Items: jobs(api.StatusPending)}) {
		t.Fatalf("Apply after Reset = true, want dropped")
	}
	snap := s.Snapshot()
	if len(snap.Jobs) != 0 || snap.Loading || snap.Query.Status != api.StatusPending {
		t.Fatalf("snapshot after Reset = %#v", snap)
	}
}
