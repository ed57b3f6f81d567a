// Package jobs keeps the job list fresh and runs actions against jobs.
//
// Poller owns the periodic refresh of a state.Store: one immediate fetch on
// Start, then a silent fetch per tick while any listed job is pending or
// processing. Dispatcher gates cancel and delete on job status, runs delete
// through an explicit confirmation, and asks the poller for a silent refresh
// after each successful action.
package jobs
