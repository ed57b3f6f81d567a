// Package logtail reads the tail of the client log for the activity view.
//
// # Reading
//
// Read extracts the last N lines of a file in a single pass with a ring
// buffer of N entries, so memory use does not depend on the file size. Lines
// come back in file order. A missing file is not an error; the log is only
// created once something has been logged.
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//
// # Structured Entries
//
// The client writes zerolog JSON lines. Parse turns one line into an Entry
// (time, level, component, message and any other fields), and Tail combines
// Read and Parse. Lines that are not JSON, such as output from an older
// build, are kept verbatim in Entry.Message.
//
// Entry.String renders a compact single line:
//
//	14:03:12 WARN  [poller] job list fetch failed error=... page=1
package logtail
