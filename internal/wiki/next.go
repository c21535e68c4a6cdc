package wiki

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var ErrNoNextPage = errors.New("no next page link found")

// NextPageURL finds the first link inside the pagination cell matched by
// selector and resolves it against pageURL.
func NextPageURL(doc *goquery.Document, pageURL, selector string) (string, error) {
	var next string

	doc.Find(selector).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		link := cell
		if !cell.Is("a[href]") {
			link = cell.Find("a[href]").First()
		}

		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}

		next = resolve(pageURL, href)
		return false
	})

	if next == "" || next == pageURL {
		return "", ErrNoNextPage
	}

	return next, nil
}
