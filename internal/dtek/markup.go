package dtek

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Origin returns scheme://host of the provider page URL.
func Origin(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("page url %q is not absolute", pageURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// AbsolutizeMarkup rewrites root-relative src and href attributes to the
// provider origin so a fragment renders outside the provider page.
func AbsolutizeMarkup(html, origin string) string {
	return strings.NewReplacer(
		`src="/`, `src="`+origin+`/`,
		`href="/`, `href="`+origin+`/`,
	).Replace(html)
}

func readFragment(doc *goquery.Document, sel, origin string) (*string, error) {
	s := doc.Find(sel).First()
	if s.Length() == 0 {
		return nil, fmt.Errorf("%w: %s not found", ErrExtractionDegraded, sel)
	}
	html, err := goquery.OuterHtml(s)
	if err != nil {
		return nil, fmt.Errorf("%w: render %s: %v", ErrExtractionDegraded, sel, err)
	}
	html = AbsolutizeMarkup(html, origin)
	return &html, nil
}

const cellStyle = "padding: 0; text-align: center; vertical-align: middle; min-width: 34px;"

// BeautifyMarkup restyles a raw schedule fragment for display: bootstrap
// table classes, a responsive wrapper, compact centered cells, a sticky day
// column, and no decorative icons.
func BeautifyMarkup(html string) (string, error) {
	if html == "" {
		return html, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}

	doc.Find("table").
		AddClass("table", "table-bordered", "table-sm", "align-middle", "mb-0").
		WrapHtml(`<div class="table-responsive"></div>`)

	doc.Find(".discon-fact-info-icon, .discon-info-icon").Remove()

	doc.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		appendStyle(cell, cellStyle)
	})

	doc.Find("td[colspan='2'], th[colspan='2']").Each(func(_ int, cell *goquery.Selection) {
		cell.AddClass("sticky-left")
		appendStyle(cell, "background: white; z-index: 2;")
	})

	return doc.Find("body").Html()
}

func appendStyle(s *goquery.Selection, style string) {
	existing, _ := s.Attr("style")
	existing = strings.TrimSpace(existing)
	if existing != "" && !strings.HasSuffix(existing, ";") {
		existing += ";"
	}
	if existing != "" {
		existing += " "
	}
	s.SetAttr("style", existing+style)
}
