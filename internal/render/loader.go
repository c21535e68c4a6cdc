// Package render loads wiki pages, either as static HTML or through a
// headless browser that scrolls the page so lazy images get their URLs.
package render

import (
	"context"
	"fmt"
	"net/http"

	"github.com/brogergvhs/pagekit/internal/wiki"

	"github.com/PuerkitoBio/goquery"
)

// Page is a loaded document plus the bits the downloader names things by.
type Page struct {
	URL   string
	Title string
	Doc   *goquery.Document
}

type Loader interface {
	Load(ctx context.Context, url string) (*Page, error)
}

// HTTPLoader fetches the static HTML.
type HTTPLoader struct {
	client *http.Client
}

func NewHTTPLoader(c *http.Client) *HTTPLoader {
	return &HTTPLoader{client: c}
}

func (l *HTTPLoader) Load(ctx context.Context, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("load %s: HTTP %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}

	return newPage(resp.Request.URL.String(), doc), nil
}

func newPage(u string, doc *goquery.Document) *Page {
	return &Page{
		URL:   u,
		Title: pageTitle(doc),
		Doc:   doc,
	}
}

func pageTitle(doc *goquery.Document) string {
	return wiki.PageTitle(doc.Find("title").First().Text())
}
