package releases

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
)

var idPattern = regexp.MustCompile(`\b[A-Z]{2}\.[A-Z]{3}(?:\.[A-Z0-9]{2,6})+\b`)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

const releaseFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Data Updates</title>
    <item>
      <title>New GDP series NY.GDP.MKTP.CD published</title>
      <description>Quarterly revision also touches NY.GDP.MKTP.KD.ZG.</description>
    </item>
    <item>
      <title>Methodology note</title>
      <description>No indicator changes this week.</description>
    </item>
    <item>
      <title>Inflation rebase</title>
      <description>FP.CPI.TOTL.ZG moves to a 2020 base year. NY.GDP.MKTP.CD unaffected.</description>
    </item>
  </channel>
</rss>`

func TestCandidatesExtractsDistinctIDs(t *testing.T) {
	ts := serveFeed(t, releaseFeed)
	w := NewWatcher(discard())

	ids, err := w.Candidates(context.Background(), ts.URL, idPattern)
	if err != nil {
		t.Fatalf("scanning feed: %v", err)
	}

	want := []string{"NY.GDP.MKTP.CD", "NY.GDP.MKTP.KD.ZG", "FP.CPI.TOTL.ZG"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("expected %s at position %d, got %s", id, i, ids[i])
		}
	}
}

func TestCandidatesCapsResults(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Big</title>`)
	for i := 0; i < maxCandidates+10; i++ {
		fmt.Fprintf(&b, `<item><title>Series XX.AAA.%03d released</title></item>`, i)
	}
	b.WriteString(`</channel></rss>`)

	ts := serveFeed(t, b.String())
	w := NewWatcher(discard())

	ids, err := w.Candidates(context.Background(), ts.URL, idPattern)
	if err != nil {
		t.Fatalf("scanning feed: %v", err)
	}
	if len(ids) != maxCandidates {
		t.Errorf("expected cap at %d, got %d", maxCandidates, len(ids))
	}
}

func TestCandidatesFeedErrorIsReturned(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	w := NewWatcher(discard())
	if _, err := w.Candidates(context.Background(), ts.URL, idPattern); err == nil {
		t.Error("expected an error for a broken feed")
	}
}

func TestCandidatesNoFeedConfigured(t *testing.T) {
	w := NewWatcher(discard())

	ids, err := w.Candidates(context.Background(), "", idPattern)
	if err != nil || ids != nil {
		t.Errorf("empty feed url should be a no-op, got %v, %v", ids, err)
	}
	ids, err = w.Candidates(context.Background(), "http://example.invalid/feed", nil)
	if err != nil || ids != nil {
		t.Errorf("nil pattern should be a no-op, got %v, %v", ids, err)
	}
}
