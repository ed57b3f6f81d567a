package results

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/five82/recast/internal/api"
)

const (
	separatorWidth  = 50
	emailSeparator  = "\n\n---\n\n"
	generatedLayout = "2006-01-02 15:04:05"
)

var upper = cases.Upper(language.Und)

// ExportText flattens one platform's content to plain text. Unknown platforms
// and undecodable content yield an empty string.
func ExportText(platform api.Platform, raw json.RawMessage) string {
	switch platform {
	case api.PlatformLinkedIn:
		post, ok := DecodeLinkedIn(raw)
		if !ok {
			return ""
		}
		text := post.Post
		if len(post.Hashtags) > 0 {
			text += "\n\nHashtags: " + strings.Join(post.Hashtags, " ")
		}
		return text
	case api.PlatformTwitter:
		thread, ok := DecodeTwitter(raw)
		if !ok {
			return ""
		}
		// Input order is kept; tweets are not re-sorted by number.
		parts := make([]string, len(thread.Tweets))
		for i, tw := range thread.Tweets {
			parts[i] = fmt.Sprintf("Tweet %d: %s", tw.Number, tw.Text)
		}
		return strings.Join(parts, "\n\n")
	case api.PlatformBlog:
		article, ok := DecodeBlog(raw)
		if !ok {
			return ""
		}
		return article.Title + "\n\n" + article.Content
	case api.PlatformEmail:
		seq, ok := DecodeEmail(raw)
		if !ok {
			return ""
		}
		parts := make([]string, len(seq.Emails))
		for i, e := range seq.Emails {
			parts[i] = "Subject: " + e.Subject + "\n\n" + e.Content
		}
		return strings.Join(parts, emailSeparator)
	default:
		return ""
	}
}

// OrderedPlatforms returns the platforms present in r: known platforms in
// canonical order, then unknown ones alphabetically.
func OrderedPlatforms(r Results) []api.Platform {
	out := make([]api.Platform, 0, len(r.Outputs))
	for _, p := range api.Platforms {
		if _, ok := r.Outputs[p]; ok {
			out = append(out, p)
		}
	}
	var unknown []api.Platform
	for p := range r.Outputs {
		if !p.Known() {
			unknown = append(unknown, p)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}

// ExportJob renders every platform of r into one document. Its sections use a
// denser layout than ExportText.
func ExportJob(r Results, generatedAt time.Time) string {
	rule := strings.Repeat("=", separatorWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "Content Results - Job %s\n", r.JobID)
	fmt.Fprintf(&b, "Generated on: %s\n", generatedAt.Format(generatedLayout))
	b.WriteString(rule + "\n\n")

	for _, p := range OrderedPlatforms(r) {
		b.WriteString(upper.String(string(p)) + "\n")
		b.WriteString(strings.Repeat("-", utf8.RuneCountInString(string(p))) + "\n")
		writeJobSection(&b, p, r.Outputs[p].Content)
		b.WriteString("\n" + rule + "\n\n")
	}
	return b.String()
}

// writeJobSection writes one platform's body for the whole-job export.
// Unknown platforms and undecodable content write nothing.
func writeJobSection(b *strings.Builder, platform api.Platform, raw json.RawMessage) {
	switch platform {
	case api.PlatformLinkedIn:
		post, ok := DecodeLinkedIn(raw)
		if !ok {
			return
		}
		b.WriteString(post.Post + "\n\n")
		// An empty list still prints the label; only a missing one is skipped.
		if post.Hashtags != nil {
			b.WriteString("Hashtags: " + strings.Join(post.Hashtags, " ") + "\n")
		}
	case api.PlatformTwitter:
		thread, ok := DecodeTwitter(raw)
		if !ok {
			return
		}
		for _, tw := range thread.Tweets {
			fmt.Fprintf(b, "Tweet %d: %s\n", tw.Number, tw.Text)
		}
	case api.PlatformBlog:
		article, ok := DecodeBlog(raw)
		if !ok {
			return
		}
		b.WriteString("Title: " + article.Title + "\n\n")
		b.WriteString(article.Content + "\n")
	case api.PlatformEmail:
		seq, ok := DecodeEmail(raw)
		if !ok {
			return
		}
		for _, e := range seq.Emails {
			fmt.Fprintf(b, "Email %d - Subject: %s\n", e.Number, e.Subject)
			b.WriteString(e.Content + "\n\n")
		}
	}
}

// PlatformFileName is the download name for one platform's export.
func PlatformFileName(platform api.Platform) string {
	return string(platform) + "-content.txt"
}

// JobFileName is the download name for a whole-job export.
func JobFileName(jobID string) string {
	return "content-results-" + jobID + ".txt"
}
