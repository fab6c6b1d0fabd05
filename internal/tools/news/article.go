package news

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aaaa47080/stock-agent-sub003/internal/utils"
)

const (
	maxArticleChars = 4000
	maxArticleLinks = 20
)

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type Article struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Links []Link `json:"links,omitempty"`
}

// ReadArticle fetches a page and extracts its readable parts. Prefers the
// og:title and <article> paragraphs, falling back to page-level elements
// for sites without semantic markup.
func (f *Fetcher) ReadArticle(ctx context.Context, rawURL string) (Article, error) {
	body, err := f.get(ctx, rawURL)
	if err != nil {
		return Article{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Article{}, fmt.Errorf("parse article html: %w", err)
	}

	art := Article{URL: rawURL}

	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		art.Title = strings.TrimSpace(og)
	} else if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		art.Title = t
	} else {
		art.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	var paras []string
	collect := func(sel *goquery.Selection) {
		sel.Each(func(_ int, s *goquery.Selection) {
			txt := strings.TrimSpace(s.Text())
			if txt != "" {
				paras = append(paras, txt)
			}
		})
	}
	collect(doc.Find("article p"))
	if len(paras) == 0 {
		collect(doc.Find("main p"))
	}
	if len(paras) == 0 {
		collect(doc.Find("p"))
	}
	text := strings.Join(paras, "\n\n")
	if len(text) > maxArticleChars {
		text = text[:maxArticleChars] + "..."
	}
	art.Text = text

	doc.Find("article a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		label := strings.TrimSpace(s.Text())
		if href == "" || label == "" {
			return true
		}
		art.Links = append(art.Links, Link{Text: label, URL: utils.Absolute(rawURL, href)})
		return len(art.Links) < maxArticleLinks
	})

	if art.Text == "" && art.Title == "" {
		return Article{}, fmt.Errorf("no readable content at %s", rawURL)
	}
	return art, nil
}
