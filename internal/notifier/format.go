package notifier

import (
	"fmt"
	"strings"
	"time"

	"hackwatch/internal/twitter"
	"hackwatch/pkg/tgui"
)

// CategoryCount is one line of the cycle summary, in registry order.
type CategoryCount struct {
	Name  string
	Count int
}

// maxTextRunes keeps a single tweet message comfortably under Telegram's
// 4096-character limit even with metadata around it.
const maxTextRunes = 3000

// Format renders one tweet as a Telegram HTML message. Pure and
// deterministic: same tweet in, same message out.
func Format(t twitter.Tweet) string {
	verified := ""
	if t.Author.Verified {
		verified = " ✅"
	}

	tags := make([]tgui.H, 0, len(t.Categories))
	for _, c := range t.Categories {
		tags = append(tags, tgui.Esc("#"+c))
	}

	metrics := fmt.Sprintf("%d likes • %d retweets • %d replies",
		t.Metrics.Likes, t.Metrics.Retweets, t.Metrics.Replies)

	parts := []tgui.H{
		"🐦 " + tgui.B("New Tweet Found!"),
		tgui.B(t.Author.Name) + tgui.Esc(verified+" @"+t.Author.Username),
		tgui.Esc(tgui.TruncRunes(t.Text, maxTextRunes)),
		"📊 " + tgui.I(metrics),
		"🔗 " + tgui.Link("View Tweet", t.URL),
	}
	if len(tags) > 0 {
		parts = append(parts, tgui.JoinH(" ", tags...))
	}
	return string(tgui.JoinH("\n\n", parts...))
}

// FormatSummary renders the trailing per-cycle summary.
func FormatSummary(total int, counts []CategoryCount) string {
	if total == 0 {
		return string(tgui.JoinH("\n\n",
			"🔍 "+tgui.B("Monitoring Update"),
			tgui.Esc("No new tweets found in this check."),
		))
	}

	var lines []string
	for _, c := range counts {
		if c.Count == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("  • %s: %d", c.Name, c.Count))
	}

	parts := []tgui.H{
		"📈 " + tgui.B("Monitoring Summary"),
		tgui.Esc(fmt.Sprintf("Found %d new tweet(s)", total)),
	}
	if len(lines) > 0 {
		parts = append(parts, tgui.B("Categories:")+"\n"+tgui.Esc(strings.Join(lines, "\n")))
	}
	return string(tgui.JoinH("\n\n", parts...))
}

// FormatStartup renders the continuous-mode startup banner.
func FormatStartup(interval time.Duration, categories []string) string {
	return string(tgui.JoinH("\n\n",
		"🤖 "+tgui.B("Monitor Started!"),
		tgui.Esc("Monitoring for: "+strings.Join(categories, ", ")),
		tgui.Esc("Check interval: "+interval.String()),
	))
}
