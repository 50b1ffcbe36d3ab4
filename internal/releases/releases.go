// Package releases watches provider announcement feeds for freshly
// published indicator IDs. Feeds are an optional hint channel: anything
// found here is handed to the direct-lookup strategy as an extra candidate,
// and a broken feed never blocks discovery.
package releases

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

// maxCandidates caps how many feed-derived IDs one run will chase.
const maxCandidates = 25

// Watcher scans RSS/Atom release feeds for indicator IDs.
type Watcher struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

// NewWatcher creates a Watcher. log may be nil.
func NewWatcher(log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{parser: gofeed.NewParser(), log: log}
}

// Candidates fetches feedURL and returns the distinct indicator IDs that
// pattern matches in entry titles, descriptions, and bodies, in feed order.
// A nil pattern or empty URL yields nothing.
func (w *Watcher) Candidates(ctx context.Context, feedURL string, pattern *regexp.Regexp) ([]string, error) {
	if feedURL == "" || pattern == nil {
		return nil, nil
	}

	feed, err := w.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching release feed: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, item := range feed.Items {
		text := strings.Join([]string{item.Title, item.Description, item.Content}, "\n")
		for _, id := range pattern.FindAllString(text, -1) {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			if len(ids) >= maxCandidates {
				w.log.Debug("release feed candidate cap reached", "feed", feedURL)
				return ids, nil
			}
		}
	}

	w.log.Debug("release feed scanned", "feed", feedURL, "entries", len(feed.Items), "candidates", len(ids))
	return ids, nil
}
