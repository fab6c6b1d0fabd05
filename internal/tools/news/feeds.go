package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	htmldom "golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
	"github.com/aaaa47080/stock-agent-sub003/internal/utils"
)

const Domain = "news"

var defaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://cointelegraph.com/rss",
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

type Headline struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published"`
}

// Fetcher pulls headlines from a fixed set of RSS feeds and extracts
// article bodies on demand.
type Fetcher struct {
	http  *http.Client
	feeds []string
}

func NewFetcher(feeds ...string) *Fetcher {
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}
	return &Fetcher{
		http:  &http.Client{Timeout: 15 * time.Second},
		feeds: feeds,
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "stock-agent/1.0")
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

var pubDateLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

const maxSummaryChars = 240

// flattenHTML strips the markup RSS descriptions tend to carry and joins
// the remaining text onto one line.
func flattenHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}
	root, err := htmldom.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var parts []string
	var walk func(n *htmldom.Node)
	walk = func(n *htmldom.Node) {
		if n.Type == htmldom.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == htmldom.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(parts, " ")
}

func parseFeed(source string, body []byte) []Headline {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil
	}
	out := make([]Headline, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		summary := flattenHTML(item.Description)
		if len(summary) > maxSummaryChars {
			summary = summary[:maxSummaryChars] + "..."
		}
		out = append(out, Headline{
			Title:     title,
			Link:      strings.TrimSpace(item.Link),
			Source:    source,
			Summary:   summary,
			Published: parsePubDate(item.PubDate),
		})
	}
	return out
}

// Headlines fetches every configured feed concurrently and merges the
// results newest first. A feed that fails to load is skipped; it is only
// an error when every feed fails.
func (f *Fetcher) Headlines(ctx context.Context, limit int) ([]Headline, error) {
	if limit <= 0 {
		limit = 10
	}

	var all []Headline
	var mu sync.Mutex
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, feedURL := range f.feeds {
		feedURL := feedURL
		g.Go(func() error {
			body, err := f.get(gctx, feedURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Log.Warnw("Feed fetch failed", "feed", feedURL, "error", err)
				failures++
				return nil
			}
			all = append(all, parseFeed(utils.Hostname(feedURL), body)...)
			return nil
		})
	}
	_ = g.Wait()

	if len(all) == 0 {
		return nil, fmt.Errorf("no headlines available, %d of %d feeds failed", failures, len(f.feeds))
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
