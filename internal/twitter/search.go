package twitter

import (
	"context"
	"errors"
	"sort"

	logx "hackwatch/pkg/logx"
)

// SearchAll runs every category query sequentially and merges the results.
//
// Merge rules:
//   - keyed by tweet id; each id appears exactly once in the output
//   - metadata: last write wins
//   - categories: accumulate across queries (union, query order)
//
// A failure on one category is logged and skipped; the remaining categories
// still run. A quota error aborts the whole call so the caller can leave the
// watermark untouched.
//
// Results are returned ascending by id (oldest first), which is the order
// the notifier delivers in.
func (c *Client) SearchAll(ctx context.Context, queries []Query, sinceID uint64, limit int) ([]Tweet, error) {
	merged := make(map[uint64]*Tweet)

	for _, q := range queries {
		tweets, err := c.Search(ctx, q.Text, sinceID, limit)
		if err != nil {
			if errors.Is(err, ErrQuotaExceeded) || ctx.Err() != nil {
				return nil, err
			}
			c.log.Warn("category search failed; skipping",
				logx.String("category", q.Category),
				logx.Err(err))
			continue
		}
		c.log.Debug("category searched",
			logx.String("category", q.Category),
			logx.Int("results", len(tweets)))

		for _, t := range tweets {
			if prev, ok := merged[t.ID]; ok {
				t.Categories = appendUnique(prev.Categories, q.Category)
			} else {
				t.Categories = []string{q.Category}
			}
			t := t
			merged[t.ID] = &t
		}
	}

	out := make([]Tweet, 0, len(merged))
	for _, t := range merged {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func appendUnique(cats []string, name string) []string {
	for _, c := range cats {
		if c == name {
			return cats
		}
	}
	return append(cats, name)
}
