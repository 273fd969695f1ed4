package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	logx "hackwatch/pkg/logx"
)

const defaultBaseURL = "https://api.twitter.com"

// Limits imposed by the recent-search endpoint.
const (
	minResultsPerQuery = 10
	maxResultsPerQuery = 100
)

type Config struct {
	BearerToken string
	BaseURL     string // override for tests; default api.twitter.com

	Timeout   time.Duration // per-request; default 15s
	RetryMax  int           // transient-error retries per request; default 2
	RetryBase time.Duration // backoff base; default 500ms
}

// Client talks to the X API v2 recent-search endpoint.
//
// There is no official Go SDK; the surface we need is one GET with bearer
// auth, so this wraps net/http directly.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BearerToken) == "" {
		return nil, errors.New("twitter: bearer token is empty")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

// Search runs one recent-search query. sinceID excludes results at or below
// that id (0 = no floor). limit is clamped to the API's [10,100] window.
// Results come back in API order (newest first).
func (c *Client) Search(ctx context.Context, query string, sinceID uint64, limit int) ([]Tweet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("twitter: empty query")
	}
	if limit < minResultsPerQuery {
		limit = minResultsPerQuery
	}
	if limit > maxResultsPerQuery {
		limit = maxResultsPerQuery
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(limit))
	q.Set("tweet.fields", "created_at,author_id,public_metrics")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "name,username,verified")
	if sinceID > 0 {
		q.Set("since_id", strconv.FormatUint(sinceID, 10))
	}
	reqURL := c.cfg.BaseURL + "/2/tweets/search/recent?" + q.Encode()

	body, err := c.getWithRetry(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("twitter: decode search response: %w", err)
	}

	users := make(map[string]apiUser, len(sr.Includes.Users))
	for _, u := range sr.Includes.Users {
		users[u.ID] = u
	}

	out := make([]Tweet, 0, len(sr.Data))
	for _, t := range sr.Data {
		id, err := strconv.ParseUint(t.ID, 10, 64)
		if err != nil {
			c.log.Warn("skipping tweet with non-numeric id", logx.String("id", t.ID))
			continue
		}
		tw := Tweet{
			ID:        id,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
			Metrics: Metrics{
				Likes:    t.PublicMetrics.LikeCount,
				Retweets: t.PublicMetrics.RetweetCount,
				Replies:  t.PublicMetrics.ReplyCount,
				Quotes:   t.PublicMetrics.QuoteCount,
			},
		}
		if u, ok := users[t.AuthorID]; ok {
			tw.Author = Author{Name: u.Name, Username: u.Username, Verified: u.Verified}
			tw.URL = "https://twitter.com/" + u.Username + "/status/" + t.ID
		} else {
			tw.Author = Author{Name: "Unknown", Username: "unknown"}
			tw.URL = "https://twitter.com/i/web/status/" + t.ID
		}
		out = append(out, tw)
	}
	return out, nil
}

// getWithRetry performs the GET, retrying transient failures (timeouts, 5xx)
// a bounded number of times with exponential backoff + jitter. A 429 maps to
// ErrQuotaExceeded immediately: retrying against an exhausted quota only
// burns more of it.
func (c *Client) getWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	maxAttempts := 1 + c.cfg.RetryMax

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, retryable, err := c.getOnce(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || attempt >= maxAttempts {
			break
		}

		delay := backoffDelay(c.cfg.RetryBase, attempt)
		c.log.Debug("search request retry scheduled",
			logx.Int("attempt", attempt+1),
			logx.Duration("delay", delay),
			logx.Err(err))
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, reqURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErrorDetail(body))
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("twitter: server error %d: %s", resp.StatusCode, apiErrorDetail(body))
	default:
		return nil, false, fmt.Errorf("twitter: request failed %d: %s", resp.StatusCode, apiErrorDetail(body))
	}
}

func apiErrorDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		switch {
		case er.Detail != "":
			return er.Detail
		case er.Title != "":
			return er.Title
		case len(er.Errors) > 0 && er.Errors[0].Detail != "":
			return er.Errors[0].Detail
		case len(er.Errors) > 0:
			return er.Errors[0].Title
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	const maxDelay = 10 * time.Second
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > maxDelay {
			d = maxDelay
			break
		}
	}
	// jitter [0.8, 1.2]
	j := (rand.Float64()*2 - 1) * 0.2
	d = time.Duration(float64(d) * (1 + j))
	if d < 0 {
		d = 0
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}
