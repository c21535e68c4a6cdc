package wiki

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var ErrNoImages = errors.New("no images found")

// lazy-loading attributes win over src, which often holds a placeholder
var sourceAttrs = []string{"data-src", "data-original", "data-lazy-src", "src"}

var reScaled = regexp.MustCompile(`/revision/latest/.*$`)

type ImageRef struct {
	URL  string
	Name string
}

// CollectImages returns one reference per element carrying class, in
// document order. Elements without a usable source keep their slot with an
// empty URL so the download tally still covers them.
func CollectImages(doc *goquery.Document, pageURL, class string, fullSize bool) []ImageRef {
	var out []ImageRef

	doc.Find("." + class).Each(func(i int, sel *goquery.Selection) {
		ref := ImageRef{Name: fmt.Sprintf("image_%d", i+1)}

		if raw := imageSource(sel); raw != "" {
			ref.URL = resolve(pageURL, raw)
			if fullSize {
				ref.URL = OriginalURL(ref.URL)
			}
			if name := FileName(ref.URL); name != "" {
				ref.Name = name
			}
		}

		out = append(out, ref)
	})

	return out
}

// imageSource reads the element itself, or the first img below it when the
// class sits on a wrapper.
func imageSource(sel *goquery.Selection) string {
	if !sel.Is("img") {
		if img := sel.Find("img").First(); img.Length() > 0 {
			sel = img
		}
	}

	for _, k := range sourceAttrs {
		v, ok := sel.Attr(k)
		v = strings.TrimSpace(v)
		if !ok || v == "" || strings.HasPrefix(strings.ToLower(v), "data:") {
			continue
		}
		return v
	}

	return ""
}

// FileName takes the path segment before a "/revision" marker, then its
// last segment: ".../images/a/ab/Cover.png/revision/latest?cb=1" gives
// "Cover.png".
func FileName(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.EscapedPath()
	}

	if i := strings.Index(p, "/revision"); i >= 0 {
		p = p[:i]
	}

	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}

	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	return strings.NewReplacer("/", "_", `\`, "_").Replace(name)
}

// OriginalURL drops thumbnail scaling from a revision URL, keeping the
// query string.
func OriginalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Path, "/revision/latest/") {
		return raw
	}

	u.Path = reScaled.ReplaceAllString(u.Path, "/revision/latest")
	u.RawPath = ""

	return u.String()
}

func resolve(pageURL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}

	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(pageURL)
	if err != nil || base == nil {
		return raw
	}

	return base.ResolveReference(u).String()
}
