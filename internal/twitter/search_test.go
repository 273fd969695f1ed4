package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logx "hackwatch/pkg/logx"
)

// fakeSearchAPI routes queries to canned responses by a marker word inside
// the query text.
func fakeSearchAPI(t *testing.T, responses map[string]string, status map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		for marker, body := range responses {
			if strings.Contains(q, marker) {
				if code, ok := status[marker]; ok && code != 0 {
					w.WriteHeader(code)
				}
				w.Write([]byte(body))
				return
			}
		}
		t.Errorf("unexpected query %q", q)
		w.Write([]byte(`{"meta":{"result_count":0}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func tweetJSON(id uint64, text string) string {
	return fmt.Sprintf(`{"id":"%d","text":%q,"author_id":"u1","created_at":"2026-08-29T10:00:00Z","public_metrics":{"like_count":1,"retweet_count":0,"reply_count":0,"quote_count":0}}`, id, text)
}

func wrapData(tweets ...string) string {
	return `{"data":[` + strings.Join(tweets, ",") + `],` +
		`"includes":{"users":[{"id":"u1","name":"Alice","username":"alice","verified":false}]},` +
		fmt.Sprintf(`"meta":{"result_count":%d}}`, len(tweets))
}

func TestSearchAllDedupesAndAccumulatesCategories(t *testing.T) {
	srv := fakeSearchAPI(t, map[string]string{
		"hackathon": wrapData(tweetJSON(101, "new hackathon with a seed round"), tweetJSON(100, "hackathon time")),
		"seed":      wrapData(tweetJSON(101, "new hackathon with a seed round"), tweetJSON(102, "seed round closed")),
	}, nil)

	c, err := New(Config{BearerToken: "x", BaseURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	queries := []Query{
		{Category: "hackathons", Text: "hackathon"},
		{Category: "funding", Text: "seed"},
	}
	got, err := c.SearchAll(context.Background(), queries, 0, 50)
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 unique tweets, got %d", len(got))
	}
	// Ascending by id.
	for i := 1; i < len(got); i++ {
		if got[i-1].ID >= got[i].ID {
			t.Fatalf("results not ascending: %d before %d", got[i-1].ID, got[i].ID)
		}
	}

	byID := map[uint64]Tweet{}
	for _, tw := range got {
		byID[tw.ID] = tw
	}
	if cats := byID[101].Categories; len(cats) != 2 || cats[0] != "hackathons" || cats[1] != "funding" {
		t.Fatalf("overlapping tweet should carry both categories, got %v", cats)
	}
	if cats := byID[100].Categories; len(cats) != 1 || cats[0] != "hackathons" {
		t.Fatalf("unexpected categories for 100: %v", cats)
	}
	if cats := byID[102].Categories; len(cats) != 1 || cats[0] != "funding" {
		t.Fatalf("unexpected categories for 102: %v", cats)
	}
}

func TestSearchAllSkipsFailedCategory(t *testing.T) {
	srv := fakeSearchAPI(t, map[string]string{
		"hackathon": `{"errors":[{"title":"Invalid Request"}]}`,
		"seed":      wrapData(tweetJSON(102, "seed round closed")),
	}, map[string]int{"hackathon": http.StatusBadRequest})

	c, err := New(Config{BearerToken: "x", BaseURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := c.SearchAll(context.Background(), []Query{
		{Category: "hackathons", Text: "hackathon"},
		{Category: "funding", Text: "seed"},
	}, 0, 50)
	if err != nil {
		t.Fatalf("SearchAll should tolerate one failed category: %v", err)
	}
	if len(got) != 1 || got[0].ID != 102 {
		t.Fatalf("expected the surviving category's tweet, got %+v", got)
	}
}

func TestSearchAllAbortsOnQuota(t *testing.T) {
	srv := fakeSearchAPI(t, map[string]string{
		"hackathon": `{"title":"Too Many Requests"}`,
		"seed":      wrapData(tweetJSON(102, "seed round closed")),
	}, map[string]int{"hackathon": http.StatusTooManyRequests})

	c, err := New(Config{BearerToken: "x", BaseURL: srv.URL, RetryBase: time.Millisecond}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.SearchAll(context.Background(), []Query{
		{Category: "hackathons", Text: "hackathon"},
		{Category: "funding", Text: "seed"},
	}, 0, 50)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota abort, got %v", err)
	}
}
