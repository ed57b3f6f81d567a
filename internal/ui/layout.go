package ui

import "time"

// Timing constants.
const (
	// DefaultUIInterval is how often the UI re-reads the job snapshot.
	DefaultUIInterval = time.Second

	// ToastDuration is how long a notification stays visible.
	ToastDuration = 4 * time.Second

	// ActionTimeout bounds a single user-triggered request.
	ActionTimeout = 30 * time.Second
)

// LayoutWideWidth is the terminal width above which the job table narrows
// in favor of the detail pane.
const LayoutWideWidth = 160

// Display limits.
const (
	// ActivityLineLimit is how many log lines the activity view reads.
	ActivityLineLimit = 500

	// MaxToasts is how many notifications are shown at once.
	MaxToasts = 3
)

// Notification text.
const (
	MsgLoadJobsFailed    = "Failed to load jobs"
	MsgLoadResultsFailed = "Failed to load results"
	MsgCancelled         = "Job cancelled successfully"
	MsgCancelFailed      = "Failed to cancel job"
	MsgDeleted           = "Job deleted successfully"
	MsgDeleteFailed      = "Failed to delete job"
	MsgRegenerated       = "Regeneration queued"
	MsgRegenerateFailed  = "Failed to regenerate content"
	MsgExported          = "Results downloaded successfully"
	MsgExportFailed      = "Failed to download results"
	MsgCopied            = "Copied to clipboard!"
	MsgCopyFailed        = "Failed to copy"
	MsgActionPending     = "Another action is already running for this job"
	MsgSessionExpired    = "Session expired. Please sign in again."
)
