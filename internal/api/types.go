package api

import (
	"encoding/json"
	"strings"
	"time"
)

// JobStatus is the server-driven lifecycle state of a job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []JobStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}

// IsActive reports whether the job still has work in flight.
func (s JobStatus) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// IsTerminal reports whether no further automatic transition will occur.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns a human readable status name.
func (s JobStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		if s == "" {
			return "Unknown"
		}
		return string(s)
	}
}

// Platform identifies a target content format.
type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformTwitter  Platform = "twitter"
	PlatformBlog     Platform = "blog"
	PlatformEmail    Platform = "email"
)

// Platforms lists the supported platforms in display order.
var Platforms = []Platform{PlatformLinkedIn, PlatformTwitter, PlatformBlog, PlatformEmail}

// Known reports whether p is a supported platform.
func (p Platform) Known() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Label returns the platform's display name.
func (p Platform) Label() string {
	switch p {
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformTwitter:
		return "Twitter"
	case PlatformBlog:
		return "Blog"
	case PlatformEmail:
		return "Email"
	default:
		return string(p)
	}
}

// ParsePlatform normalizes user input into a Platform.
func ParsePlatform(value string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(value)))
	return p, p.Known()
}

// User mirrors the backend's user response.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TokenResponse is returned by /auth/login and /auth/register.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

// Job describes a repurposing job in transport-friendly form.
type Job struct {
	ID                 string         `json:"id"`
	ContentID          string         `json:"content_id"`
	UserID             string         `json:"user_id"`
	Title              string         `json:"title"`
	Status             JobStatus      `json:"status"`
	Platforms          []Platform     `json:"platforms"`
	ProgressPercentage int            `json:"progress_percentage"`
	CurrentStep        string         `json:"current_step"`
	ErrorMessage       string         `json:"error_message"`
	RetryCount         int            `json:"retry_count"`
	UserPreferences    map[string]any `json:"user_preferences,omitempty"`
	StartedAt          string         `json:"started_at"`
	CompletedAt        string         `json:"completed_at"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

// DisplayTitle falls back to the short id when the job has no title.
func (j Job) DisplayTitle() string {
	if title := strings.TrimSpace(j.Title); title != "" {
		return title
	}
	if len(j.ID) > 8 {
		return "Job " + j.ID[:8]
	}
	return "Job " + j.ID
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (j Job) ParsedCreatedAt() time.Time {
	return parseTime(j.CreatedAt)
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (j Job) ParsedUpdatedAt() time.Time {
	return parseTime(j.UpdatedAt)
}

// ParsedCompletedAt returns the parsed CompletedAt timestamp.
func (j Job) ParsedCompletedAt() time.Time {
	return parseTime(j.CompletedAt)
}

// JobQuery configures /jobs list requests.
type JobQuery struct {
	Page   int
	Limit  int
	Status JobStatus // empty means all statuses
}

// Normalized clamps page and limit to sane values.
func (q JobQuery) Normalized() JobQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	return q
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// JobList mirrors the paginated /jobs response.
type JobList struct {
	Items []Job `json:"items"`
	Total int   `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

// Output is one platform's generated content for a job.
type Output struct {
	ID           string          `json:"id"`
	JobID        string          `json:"job_id"`
	Platform     Platform        `json:"platform"`
	Content      json.RawMessage `json:"content"`
	QualityScore *float64        `json:"quality_score,omitempty"`
	IsFavorite   bool            `json:"is_favorite"`
	CreatedAt    string          `json:"created_at"`
}

// JobOutputs mirrors /outputs/{jobId}/all.
type JobOutputs struct {
	JobID   string              `json:"job_id"`
	Outputs map[Platform]Output `json:"outputs"`
}

// RegenerateResponse is returned when an output is queued for regeneration.
type RegenerateResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// Analytics mirrors the /analytics/ summary.
type Analytics struct {
	TotalContent             int        `json:"total_content"`
	TotalJobs                int        `json:"total_jobs"`
	CompletedJobs            int        `json:"completed_jobs"`
	ProcessingJobs           int        `json:"processing_jobs"`
	TotalOutputs             int        `json:"total_outputs"`
	FavoriteOutputs          int        `json:"favorite_outputs"`
	AvgProcessingTimeSeconds *float64   `json:"avg_processing_time_seconds,omitempty"`
	PlatformsUsed            []Platform `json:"platforms_used"`
}

// UploadRequest describes a multipart content upload.
type UploadRequest struct {
	FileName    string
	File        []byte
	Title       string
	Platforms   []Platform
	Preferences map[string]any
}

// UploadResponse mirrors /content/upload.
type UploadResponse struct {
	ContentID string    `json:"content_id"`
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message"`
}

const backendTimestampLayout = "2006-01-02T15:04:05.999999"

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	// Naive timestamps from the backend are UTC.
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
