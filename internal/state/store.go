package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/recast/internal/api"
)

// Snapshot represents the latest job list available to the UI.
type Snapshot struct {
	Jobs                []api.Job
	Total               int
	Query               api.JobQuery
	Loading             bool // blocking fetch in flight
	Refreshing          bool // silent fetch in flight
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive fetch failures
}

// HasActive reports whether any job is still pending or processing.
func (s Snapshot) HasActive() bool {
	for _, job := range s.Jobs {
		if job.Status.IsActive() {
			return true
		}
	}
	return false
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Pages returns the number of pages implied by Total and the query limit.
func (s Snapshot) Pages() int {
	limit := s.Query.Normalized().Limit
	if s.Total <= 0 {
		return 1
	}
	return (s.Total + limit - 1) / limit
}

// Find returns the job with id from the current page.
func (s Snapshot) Find(id string) (api.Job, bool) {
	for _, job := range s.Jobs {
		if job.ID == id {
			return job, true
		}
	}
	return api.Job{}, false
}

// Store coordinates concurrent updates to the snapshot.
//
// Each fetch is tagged with a generation from Begin. Results for a generation
// older than the latest query change are dropped so a slow response for a
// previous filter or page cannot overwrite the current view. Results older
// than the last recorded one are dropped too, so a fetch that started before
// a mutation cannot replace the re-fetch that followed it.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	gen      uint64 // latest issued generation
	queryGen uint64 // generation at which the current query was set
	applied  uint64 // generation of the last recorded result
	inFlight map[uint64]bool
}

// NewStore returns a Store initialized with query.
func NewStore(query api.JobQuery) *Store {
	return &Store{snapshot: Snapshot{Query: query.Normalized()}}
}

// Begin records the start of a fetch for query and returns its generation.
// A query different from the current one supersedes every earlier fetch.
func (s *Store) Begin(query api.JobQuery, silent bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = query.Normalized()
	s.gen++
	if query != s.snapshot.Query {
		s.snapshot.Query = query
		s.queryGen = s.gen
	}
	if s.inFlight == nil {
		s.inFlight = make(map[uint64]bool)
	}
	s.inFlight[s.gen] = silent
	s.refreshFlags()
	return s.gen
}

// BeginCurrent starts a fetch for the current query and returns its
// generation along with the query to send.
func (s *Store) BeginCurrent(silent bool) (uint64, api.JobQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.inFlight == nil {
		s.inFlight = make(map[uint64]bool)
	}
	s.inFlight[s.gen] = silent
	s.refreshFlags()
	return s.gen, s.snapshot.Query
}

// Apply stores a successful fetch result. It reports false when the result
// belongs to a superseded query or is older than the last recorded result.
func (s *Store) Apply(gen uint64, list api.JobList) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, gen)
	defer s.refreshFlags()
	if s.stale(gen) {
		return false
	}

	s.applied = gen
	s.snapshot.Jobs = cloneJobs(list.Items)
	s.snapshot.Total = list.Total
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
	return true
}

// Fail records a failed fetch. Previous jobs are kept but the error is
// recorded for visibility.
func (s *Store) Fail(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, gen)
	defer s.refreshFlags()
	if s.stale(gen) {
		return false
	}

	s.applied = gen
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
	return true
}

// Abort forgets an in-flight fetch without recording a result, e.g. when the
// view that issued it was torn down.
func (s *Store) Abort(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, gen)
	s.refreshFlags()
}

// Reset clears all jobs, e.g. after sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	query := s.snapshot.Query
	s.snapshot = Snapshot{Query: query}
	s.queryGen = s.gen + 1
	s.inFlight = nil
}

func (s *Store) stale(gen uint64) bool {
	return gen < s.queryGen || gen <= s.applied
}

func (s *Store) refreshFlags() {
	loading, refreshing := false, false
	for gen, silent := range s.inFlight {
		if gen < s.queryGen {
			continue
		}
		if silent {
			refreshing = true
		} else {
			loading = true
		}
	}
	s.snapshot.Loading = loading
	s.snapshot.Refreshing = refreshing
}

// Query returns the current query.
func (s *Store) Query() api.JobQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Query
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Jobs = cloneJobs(s.snapshot.Jobs)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneJobs(items []api.Job) []api.Job {
	if len(items) == 0 {
		return nil
	}
	dup := make([]api.Job, len(items))
	copy(dup, items)
	for i := range dup {
		if items[i].Platforms != nil {
			dup[i].Platforms = append([]api.Platform(nil), items[i].Platforms...)
		}
	}
	return dup
}
