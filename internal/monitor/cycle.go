package monitor

import (
	"context"
	"fmt"
	"time"

	"hackwatch/internal/notifier"
	"hackwatch/internal/twitter"
	logx "hackwatch/pkg/logx"
)

// runCycle is one fetch→categorize→deliver→persist pass.
//
// Failure anywhere before persistence leaves the watermark untouched: items
// are then re-fetched (and possibly re-delivered) next cycle, never lost.
func (m *Monitor) runCycle(ctx context.Context) error {
	start := time.Now()
	cfg, reg := m.snapshot()

	since, haveWM, err := m.store.Watermark(ctx)
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}
	m.log.Info("cycle started",
		logx.Uint64("since_id", since),
		logx.Bool("watermark_present", haveWM))

	queries := make([]twitter.Query, 0, len(reg.Names()))
	for _, q := range reg.Queries() {
		queries = append(queries, twitter.Query{Category: q.Category, Text: q.Query})
	}

	tweets, err := m.search.SearchAll(ctx, queries, since, cfg.MaxPerQuery)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	// The API's since_id should already exclude ids at or below the
	// watermark; enforce it anyway so the no-redelivery invariant doesn't
	// depend on remote behavior.
	fresh := tweets[:0]
	for _, t := range tweets {
		if t.ID > since {
			fresh = append(fresh, t)
		}
	}
	tweets = fresh

	if len(tweets) == 0 {
		m.log.Info("no new tweets", logx.Duration("took", time.Since(start)))
		return nil
	}

	// Tag each tweet: the category whose query returned it, unioned with
	// substring matches over the text, emitted in registry order. Tweets
	// matching zero keywords are still delivered; the search query already
	// filtered by keyword.
	for i := range tweets {
		tweets[i].Categories = unionInOrder(reg.Names(), tweets[i].Categories, reg.Categorize(tweets[i].Text))
	}

	counts := make([]notifier.CategoryCount, 0, len(reg.Names()))
	byName := map[string]int{}
	for _, t := range tweets {
		for _, c := range t.Categories {
			byName[c]++
		}
	}
	for _, name := range reg.Names() {
		counts = append(counts, notifier.CategoryCount{Name: name, Count: byName[name]})
	}

	// SearchAll returns ascending by id, so chat order matches posting order.
	sent := m.deliver.DeliverBatch(ctx, tweets)

	// Shutdown mid-batch leaves the tail unsent. Keep the old watermark so
	// the remainder is re-fetched next run; at-least-once tolerates the
	// duplicates this causes, never the losses advancing would cause.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delivery interrupted after %d of %d messages: %w", sent, len(tweets), err)
	}

	if err := m.deliver.DeliverSummary(ctx, len(tweets), counts); err != nil {
		m.log.Warn("summary delivery failed", logx.Err(err))
	}

	newWM := since
	for _, t := range tweets {
		if t.ID > newWM {
			newWM = t.ID
		}
	}

	// Detached context: a shutdown signal must not interrupt the watermark
	// write, or the next run would re-deliver this whole batch.
	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.SetWatermark(persistCtx, newWM); err != nil {
		return fmt.Errorf("persist watermark: %w", err)
	}

	m.log.Info("cycle complete",
		logx.Int("found", len(tweets)),
		logx.Int("sent", sent),
		logx.Uint64("watermark", newWM),
		logx.Duration("took", time.Since(start)))
	return nil
}

// unionInOrder merges category sets, keeping the registry's order and
// appending any names the registry no longer knows (possible right after a
// config reload mid-merge).
func unionInOrder(order []string, sets ...[]string) []string {
	in := map[string]bool{}
	for _, set := range sets {
		for _, name := range set {
			in[name] = true
		}
	}
	out := make([]string, 0, len(in))
	for _, name := range order {
		if in[name] {
			out = append(out, name)
			delete(in, name)
		}
	}
	for _, set := range sets {
		for _, name := range set {
			if in[name] {
				out = append(out, name)
				delete(in, name)
			}
		}
	}
	return out
}
