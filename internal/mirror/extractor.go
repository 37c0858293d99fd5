package mirror

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AnchorLink is a same-document-resolved anchor: the exact text that
// appeared in the href attribute, plus its resolved absolute URL.
type AnchorLink struct {
	RelativeLink string
	AbsoluteURL  *url.URL
}

// AssetLink is a static-asset reference tagged with the HTML
// attribute it came from ("href" or "src").
type AssetLink struct {
	RelativeLink string
	AbsoluteURL  *url.URL
	Attribute    string
}

// extractLinks parses an HTML document and returns its anchor
// sub-page links and static-asset references, each resolved against
// pageURL and deduplicated by full tuple. It uses goquery's
// CSS-selector based traversal rather than walking the raw node tree.
func extractLinks(r io.Reader, pageURL *url.URL) ([]AnchorLink, []AssetLink, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, err
	}

	anchors := extractAnchors(doc, pageURL)
	assets := extractAssets(doc, pageURL)
	return anchors, assets, nil
}

func extractAnchors(doc *goquery.Document, pageURL *url.URL) []AnchorLink {
	seen := make(map[string]struct{})
	var anchors []AnchorLink

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if _, excluded := sel.Attr("download"); excluded {
			return
		}
		href, _ := sel.Attr("href")
		if href == "" || href == "javascript:void(0)" || strings.Contains(href, "#") {
			return
		}
		abs, ok := resolveLink(href, pageURL)
		if !ok {
			return
		}
		key := href + "\x00" + abs.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		anchors = append(anchors, AnchorLink{RelativeLink: href, AbsoluteURL: abs})
	})

	return anchors
}

func extractAssets(doc *goquery.Document, pageURL *url.URL) []AssetLink {
	seen := make(map[string]struct{})
	var assets []AssetLink

	add := func(raw, attr string) {
		if raw == "" {
			return
		}
		abs, ok := resolveLink(raw, pageURL)
		if !ok {
			return
		}
		key := attr + "\x00" + raw + "\x00" + abs.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		assets = append(assets, AssetLink{RelativeLink: raw, AbsoluteURL: abs, Attribute: attr})
	}

	doc.Find(`link[rel="stylesheet"][href]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		add(href, "href")
	})

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		add(src, "src")
	})

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if strings.HasPrefix(src, "data") || strings.HasPrefix(src, "blob") {
			return
		}
		add(src, "src")
	})

	return assets
}
