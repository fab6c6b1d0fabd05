package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/aaaa47080/stock-agent-sub003/internal/tools"
	"github.com/aaaa47080/stock-agent-sub003/internal/utils"
)

func Tools(f *Fetcher) []tools.Tool {
	return []tools.Tool{
		headlinesTool(f),
		articleTool(f),
	}
}

func headlinesTool(f *Fetcher) tools.Tool {
	return tools.Tool{
		Name:        "latest_headlines",
		Description: "Fetch the latest crypto news headlines from the configured feeds.",
		Domain:      Domain,
		Params: []tools.ParamSpec{
			{Name: "limit", Type: "int", Description: "max headlines to return, 1-30 (default 10)", Required: false},
			{Name: "topic", Type: "string", Description: "keep only headlines mentioning this word", Required: false},
		},
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			limit := utils.OptionalInt(args, "limit", 10)
			if limit < 1 {
				limit = 1
			}
			if limit > 30 {
				limit = 30
			}
			topic := strings.TrimSpace(utils.OptionalString(args, "topic", ""))

			// Over-fetch when filtering so a narrow topic still fills the limit.
			fetchLimit := limit
			if topic != "" {
				fetchLimit = limit * 3
			}
			headlines, err := f.Headlines(ctx, fetchLimit)
			if err != nil {
				return nil, err
			}
			if topic != "" {
				kept := headlines[:0]
				needle := strings.ToLower(topic)
				for _, h := range headlines {
					if strings.Contains(strings.ToLower(h.Title), needle) ||
						strings.Contains(strings.ToLower(h.Summary), needle) {
						kept = append(kept, h)
					}
				}
				headlines = kept
				if len(headlines) > limit {
					headlines = headlines[:limit]
				}
				if len(headlines) == 0 {
					return nil, fmt.Errorf("no recent headlines mention %q", topic)
				}
			}

			items := make([]map[string]any, 0, len(headlines))
			for _, h := range headlines {
				item := map[string]any{
					"title":  h.Title,
					"link":   h.Link,
					"source": h.Source,
				}
				if h.Summary != "" {
					item["summary"] = h.Summary
				}
				if !h.Published.IsZero() {
					item["published"] = h.Published.Format("2006-01-02 15:04")
				}
				items = append(items, item)
			}
			return map[string]any{"headlines": items, "count": len(items)}, nil
		},
	}
}

func articleTool(f *Fetcher) tools.Tool {
	return tools.Tool{
		Name:        "read_article",
		Description: "Fetch one article URL and extract its title and body text.",
		Domain:      Domain,
		Params: []tools.ParamSpec{
			{Name: "url", Type: "string", Description: "article URL, usually taken from latest_headlines", Required: true},
		},
		Run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			rawURL, err := utils.GetStringPayload(args, "url")
			if err != nil {
				return nil, err
			}
			art, err := f.ReadArticle(ctx, rawURL)
			if err != nil {
				return nil, err
			}
			out := map[string]any{
				"url":   art.URL,
				"title": art.Title,
				"text":  art.Text,
			}
			if len(art.Links) > 0 {
				links := make([]map[string]any, 0, len(art.Links))
				for _, l := range art.Links {
					links = append(links, map[string]any{"text": l.Text, "url": l.URL})
				}
				out["links"] = links
			}
			return out, nil
		},
	}
}
