package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/recast/internal/api"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// truncateMiddle keeps both ends of value, which suits file paths.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	keep := limit - 1
	prefix := keep / 2
	suffix := keep - prefix
	return string(runes[:prefix]) + "…" + string(runes[len(runes)-suffix:])
}

// padRight pads value with spaces to width runes.
func padRight(value string, width int) string {
	n := len([]rune(value))
	if n >= width {
		return value
	}
	return value + strings.Repeat(" ", width-n)
}

// formatTimestamp renders a backend time for tables, empty when unset.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2 15:04")
}

// formatAge renders how long ago t was, relative to now.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatDuration renders a number of seconds as "1m 05s" style text.
func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m < 60 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

// progressBar renders percent as a fixed-width bar.
func progressBar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// platformList renders platform labels separated by commas.
func platformList(platforms []api.Platform) string {
	labels := make([]string, 0, len(platforms))
	for _, p := range platforms {
		labels = append(labels, p.Label())
	}
	return strings.Join(labels, ", ")
}

// statusFilterLabel names a status filter for the command bar.
func statusFilterLabel(status api.JobStatus) string {
	if status == "" {
		return "All"
	}
	return status.Label()
}

// nextStatusFilter cycles all → pending → processing → completed → failed
// → cancelled → all.
func nextStatusFilter(status api.JobStatus) api.JobStatus {
	if status == "" {
		return api.Statuses[0]
	}
	for i, s := range api.Statuses {
		if s == status {
			if i == len(api.Statuses)-1 {
				return ""
			}
			return api.Statuses[i+1]
		}
	}
	return ""
}
