// Package news is the floor's researcher: it pulls recent financial
// headlines from the Google News RSS feed so strategies can react to
// coverage without an attached browser.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"tradefloor/internal/market"
)

// Headline is one condensed news item for a query.
type Headline struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// RSS feed shape for news.google.com/rss.
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title string `xml:"title"`
	Items []item `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Source      source `xml:"source"`
}

type source struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

const feedBaseURL = "https://news.google.com/rss/search"

// Client searches the Google News RSS feed.
type Client struct {
	client  *resty.Client
	cache   *market.CacheManager
	baseURL string
}

func NewClient(cacheDir string, cacheEnabled bool) *Client {
	cache := market.NewCacheManager(filepath.Join(cacheDir, "google_news"), 30*time.Minute, cacheEnabled)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	return &Client{
		client:  client,
		cache:   cache,
		baseURL: feedBaseURL,
	}
}

// SetBaseURL points the client at a different feed endpoint, for tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Search returns up to maxResults recent headlines for a query, newest
// first as Google orders them.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Headline, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	cacheKey := fmt.Sprintf("%s_%d", query, maxResults)
	var cached []Headline
	if c.cache.Get("google_news", "rss", cacheKey, &cached) {
		return cached, nil
	}

	feedURL := c.baseURL + "?q=" + url.QueryEscape(query) + "&hl=en-US&gl=US&ceid=US:en"

	var feed rss
	err := market.WithRetry(market.DefaultRetryConfig(), func() error {
		resp, err := c.client.R().SetContext(ctx).Get(feedURL)
		if err != nil {
			return fmt.Errorf("fetch Google News RSS: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("HTTP error %d when fetching Google News RSS", resp.StatusCode())
		}
		if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
			return fmt.Errorf("parse RSS: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	headlines := make([]Headline, 0, maxResults)
	for _, it := range feed.Channel.Items {
		if len(headlines) >= maxResults {
			break
		}
		headlines = append(headlines, Headline{
			Title:       strings.TrimSpace(it.Title),
			Summary:     stripHTML(it.Description),
			URL:         it.Link,
			Source:      it.Source.Text,
			PublishedAt: parsePubDate(it.PubDate),
		})
	}

	c.cache.Set("google_news", "rss", cacheKey, headlines)
	return headlines, nil
}

// SymbolNews searches for coverage of a specific ticker.
func (c *Client) SymbolNews(ctx context.Context, symbol string, maxResults int) ([]Headline, error) {
	return c.Search(ctx, symbol+" stock", maxResults)
}

// Descriptions arrive as HTML fragments; keep only the text.
func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}

func parsePubDate(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
