// Package state holds the job list shared between the poller and the UI.
//
// # Overview
//
// The Store is the coordination point where fetch results meet rendering.
// Writers are the job poller and the action dispatcher's follow-up refreshes;
// the reader is the UI, which takes a Snapshot on every frame tick.
//
//	Writers (jobs.Poller):          Reader (UI):
//	┌────────────────────┐         ┌─────────────────┐
//	│ gen := Begin(...)  │         │                 │
//	│ ListJobs()         │         │                 │
//	│ Apply(gen, list)   │────────→│ store.Snapshot()│
//	│  or Fail(gen, err) │ (mutex) │ render table    │
//	└────────────────────┘         └─────────────────┘
//
// # Generations
//
// Every fetch is tagged with a monotonically increasing generation. Changing
// the query (status filter, page, limit) through Begin marks a boundary:
// results for generations issued before the boundary are dropped by Apply and
// Fail. Without this, a slow response for the previous page could land after
// the user moved on and replace the visible rows.
//
// Within one query, results land in generation order: once a generation is
// recorded, older ones are dropped. A refresh that started before a delete
// therefore cannot bring the deleted job back after the post-delete re-fetch.
//
// BeginCurrent is used by the timer path. It reads the current query under the
// same lock that issues the generation, so a timer tick can never resurrect a
// query the user already changed.
//
// # Loading Flags
//
// Snapshot.Loading is true while a non-silent fetch is in flight and drives
// the blocking spinner. Snapshot.Refreshing is the silent variant and drives
// only a small header indicator. Both are derived from the set of in-flight
// generations that are still current.
//
// # Failure Semantics
//
// A failed fetch keeps the previous jobs and total, records LastError, and
// bumps ConsecutiveFailures. Two or more consecutive failures make IsOffline
// report true. The next successful fetch resets the counter.
//
// # Snapshots
//
// Snapshot returns a copy: the job slice, each job's platform slice and the
// error value are duplicated so callers can hold on to a snapshot across
// frames without racing the writers.
package state
