package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>"AAPL stock" - Google News</title>
    <item>
      <title>Apple hits record high</title>
      <link>https://example.com/apple-record</link>
      <description>&lt;a href="https://example.com"&gt;Apple hits record high&lt;/a&gt;&lt;font&gt;Example Wire&lt;/font&gt;</description>
      <pubDate>Mon, 05 Jan 2026 14:30:00 GMT</pubDate>
      <source url="https://example.com">Example Wire</source>
    </item>
    <item>
      <title>Analysts split on Apple outlook</title>
      <link>https://example.com/apple-outlook</link>
      <description>Plain text summary</description>
      <pubDate>Mon, 05 Jan 2026 12:00:00 GMT</pubDate>
      <source url="https://example.com">Example Times</source>
    </item>
  </channel>
</rss>`

func newTestClient(t *testing.T) (*Client, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("q") == "" {
			t.Errorf("missing q parameter")
		}
		fmt.Fprint(w, feedFixture)
	}))
	t.Cleanup(server.Close)

	c := NewClient(t.TempDir(), true)
	c.SetBaseURL(server.URL)
	return c, &calls
}

func TestSearch(t *testing.T) {
	c, calls := newTestClient(t)

	headlines, err := c.Search(context.Background(), "AAPL stock", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(headlines) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(headlines))
	}

	first := headlines[0]
	if first.Title != "Apple hits record high" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Source != "Example Wire" {
		t.Fatalf("unexpected source %q", first.Source)
	}
	if first.Summary == "" || strings.Contains(first.Summary, "<") {
		t.Fatalf("summary should be plain text, got %q", first.Summary)
	}
	want := time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("expected %s, got %s", want, first.PublishedAt)
	}

	// A repeat search is a cache hit.
	if _, err := c.Search(context.Background(), "AAPL stock", 10); err != nil {
		t.Fatalf("cached Search: %v", err)
	}
	if *calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", *calls)
	}
}

func TestSearchLimitsResults(t *testing.T) {
	c, _ := newTestClient(t)

	headlines, err := c.SymbolNews(context.Background(), "AAPL", 1)
	if err != nil {
		t.Fatalf("SymbolNews: %v", err)
	}
	if len(headlines) != 1 {
		t.Fatalf("expected 1 headline, got %d", len(headlines))
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.Search(context.Background(), "  ", 5); err == nil {
		t.Fatal("expected an error for an empty query")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML(`<a href="https://example.com">Hello</a> <b>world</b>`)
	if got != "Hello world" {
		t.Fatalf("stripHTML = %q", got)
	}
}

func TestParsePubDate(t *testing.T) {
	if parsePubDate("Mon, 05 Jan 2026 14:30:00 +0000").IsZero() {
		t.Fatal("RFC1123Z date should parse")
	}
	if !parsePubDate("not a date").IsZero() {
		t.Fatal("garbage should produce the zero time")
	}
}
