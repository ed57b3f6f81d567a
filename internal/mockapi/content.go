package mockapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/five82/recast/internal/api"
)

// generateOutputs fabricates deterministic content for each requested
// platform, shaped like the real generator's output.
func generateOutputs(job api.Job, stamp string) map[api.Platform]api.Output {
	out := make(map[api.Platform]api.Output, len(job.Platforms))
	for _, p := range job.Platforms {
		content, ok := platformContent(p, job.Title)
		if !ok {
			continue
		}
		raw, err := json.Marshal(content)
		if err != nil {
			continue
		}
		score := 0.82
		out[p] = api.Output{
			ID:           uuid.NewString(),
			JobID:        job.ID,
			Platform:     p,
			Content:      raw,
			QualityScore: &score,
			CreatedAt:    stamp,
		}
	}
	return out
}

func platformContent(p api.Platform, title string) (any, bool) {
	switch p {
	case api.PlatformLinkedIn:
		post := fmt.Sprintf("Three takeaways from %q that changed how our team works.\n\n1. Start with the reader.\n2. Cut what does not earn its place.\n3. Ship, then iterate.", title)
		return map[string]any{
			"post":            post,
			"hashtags":        []string{"#contentstrategy", "#writing", "#productivity"},
			"character_count": utf8.RuneCountInString(post),
		}, true
	case api.PlatformTwitter:
		texts := []string{
			fmt.Sprintf("Just finished %q. A thread on what stood out:", title),
			"The best ideas are the ones you can explain in a sentence.",
			"Repurpose long-form work into short pieces and meet readers where they are.",
		}
		tweets := make([]map[string]any, len(texts))
		for i, text := range texts {
			tweets[i] = map[string]any{"number": i + 1, "text": text, "char_count": utf8.RuneCountInString(text)}
		}
		return map[string]any{"tweets": tweets}, true
	case api.PlatformBlog:
		body := fmt.Sprintf("## Overview\n\nThis article distills %q into its essentials.\n\n## Key points\n\nClear structure, concrete examples, and a call to action.", title)
		return map[string]any{
			"title":            title + ": The Short Version",
			"content":          body,
			"meta_description": "A concise summary of " + title,
			"word_count":       len(strings.Fields(body)),
		}, true
	case api.PlatformEmail:
		emails := []map[string]any{
			{"number": 1, "subject": "Introducing " + title, "content": "Hi there,\n\nHere is a quick overview of what we covered."},
			{"number": 2, "subject": "The one idea to keep from " + title, "content": "Hi again,\n\nIf you remember one thing, make it this."},
		}
		for _, e := range emails {
			e["word_count"] = len(strings.Fields(e["content"].(string)))
		}
		return map[string]any{"emails": emails}, true
	default:
		return nil, false
	}
}
