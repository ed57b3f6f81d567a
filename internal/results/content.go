package results

import "encoding/json"

// LinkedInPost is the generated LinkedIn content.
type LinkedInPost struct {
	Post           string   `json:"post"`
	Hashtags       []string `json:"hashtags"`
	CharacterCount int      `json:"character_count"`
}

// Tweet is one entry of a thread.
type Tweet struct {
	Number    int    `json:"number"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}

// TwitterThread is the generated Twitter content.
type TwitterThread struct {
	Tweets []Tweet `json:"tweets"`
}

// BlogArticle is the generated blog content.
type BlogArticle struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	MetaDescription string `json:"meta_description"`
	WordCount       int    `json:"word_count"`
}

// Email is one message of a sequence.
type Email struct {
	Number    int    `json:"number"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// EmailSequence is the generated email content.
type EmailSequence struct {
	Emails []Email `json:"emails"`
}

func decode[T any](raw json.RawMessage) (T, bool) {
	var v T
	if len(raw) == 0 {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

// DecodeLinkedIn decodes raw LinkedIn content.
func DecodeLinkedIn(raw json.RawMessage) (LinkedInPost, bool) { return decode[LinkedInPost](raw) }

// DecodeTwitter decodes raw Twitter content.
func DecodeTwitter(raw json.RawMessage) (TwitterThread, bool) { return decode[TwitterThread](raw) }

// DecodeBlog decodes raw blog content.
func DecodeBlog(raw json.RawMessage) (BlogArticle, bool) { return decode[BlogArticle](raw) }

// DecodeEmail decodes raw email content.
func DecodeEmail(raw json.RawMessage) (EmailSequence, bool) { return decode[EmailSequence](raw) }
