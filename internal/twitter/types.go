package twitter

import (
	"errors"
	"time"
)

// ErrQuotaExceeded reports that the search API rejected a call because the
// rate/usage quota is exhausted (HTTP 429). Callers must abort the current
// cycle without advancing the watermark.
var ErrQuotaExceeded = errors.New("twitter: search quota exceeded")

// Tweet is one search result. Immutable once fetched.
//
// IDs are snowflakes: monotonically increasing, so they double as a
// progress watermark.
type Tweet struct {
	ID        uint64
	Text      string
	CreatedAt time.Time
	Author    Author
	Metrics   Metrics
	URL       string

	// Categories accumulates every category whose query (or keyword set)
	// matched this tweet. Registry order, no duplicates.
	Categories []string
}

type Author struct {
	Name     string
	Username string
	Verified bool
}

type Metrics struct {
	Likes    int
	Retweets int
	Replies  int
	Quotes   int
}

// Query pairs a category name with its derived search query text.
type Query struct {
	Category string
	Text     string
}

// ---- wire types (API v2 recent search) ----

type searchResponse struct {
	Data     []apiTweet  `json:"data"`
	Includes apiIncludes `json:"includes"`
	Meta     apiMeta     `json:"meta"`
}

type apiTweet struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	AuthorID      string     `json:"author_id"`
	CreatedAt     time.Time  `json:"created_at"`
	PublicMetrics apiMetrics `json:"public_metrics"`
}

type apiMetrics struct {
	LikeCount    int `json:"like_count"`
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
	QuoteCount   int `json:"quote_count"`
}

type apiIncludes struct {
	Users []apiUser `json:"users"`
}

type apiUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
}

type apiMeta struct {
	ResultCount int    `json:"result_count"`
	NewestID    string `json:"newest_id"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type errorResponse struct {
	Errors []apiError `json:"errors"`
	Title  string     `json:"title"`
	Detail string     `json:"detail"`
}
