// Package extract parses catalog HTML into typed structures. All
// functions are pure: they take a fetched document and do no I/O.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/normalize"
)

// Selectors address the class-name-based markup of the catalog. They are
// configuration, not logic: the defaults match the current site layout and
// are the only thing that needs to change if it shifts.
type Selectors struct {
	ListingContainer string
	ItemAnchor       string
	PaginationItem   string
	DetailTitle      string
	DetailImage      string
	DetailInfo       string
	DetailAuthor     string
}

// DefaultSelectors returns the selectors for the live catalog markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ListingContainer: "div.collections__list",
		ItemAnchor:       "a.collections-item",
		PaginationItem:   "ul.collections-nav__list.pagination li.pagination__item",
		DetailTitle:      "div.exhibit-info__title",
		DetailImage:      "div.exhibit-slide img",
		DetailInfo:       "div.exhibit__info p",
		DetailAuthor:     "div.exhibit-info__author a",
	}
}

// Extractor parses listing and detail documents, resolving relative hrefs
// against the catalog base URL.
type Extractor struct {
	sel  Selectors
	base *url.URL
}

// New builds an Extractor for the given catalog base URL.
func New(baseURL string, sel Selectors) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Extractor{sel: sel, base: base}, nil
}

// PageCount returns the highest page number present in the listing
// pagination control. A missing control is a ParseError: the orchestrator
// cannot bound discovery without it, so the run must abort.
func (e *Extractor) PageCount(listingHTML []byte, pageURL string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(listingHTML))
	if err != nil {
		return 0, fmt.Errorf("parse listing document: %w", err)
	}

	items := doc.Find(e.sel.PaginationItem)
	if items.Length() == 0 {
		return 0, &catalog.ParseError{URL: pageURL, Element: "pagination control"}
	}

	max := 0
	items.Each(func(_ int, s *goquery.Selection) {
		n, convErr := strconv.Atoi(strings.TrimSpace(s.Text()))
		if convErr == nil && n > max {
			max = n
		}
	})
	if max == 0 {
		return 0, &catalog.ParseError{URL: pageURL, Element: "pagination page numbers"}
	}
	return max, nil
}

// ItemLinks extracts every item anchor from a listing page and returns
// absolute detail-page URLs. A missing listing container is a ParseError.
func (e *Extractor) ItemLinks(listingHTML []byte, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(listingHTML))
	if err != nil {
		return nil, fmt.Errorf("parse listing document: %w", err)
	}

	container := doc.Find(e.sel.ListingContainer)
	if container.Length() == 0 {
		return nil, &catalog.ParseError{URL: pageURL, Element: "listing container"}
	}

	var links []string
	container.Find(e.sel.ItemAnchor).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, e.absolute(href))
	})
	return links, nil
}

// ItemMetadata extracts one detail page. It returns (nil, nil) when the
// image element is absent: some items are legitimately image-less and are
// skipped rather than failed. Missing title, description, or author is a
// ParseError for this item only.
func (e *Extractor) ItemMetadata(detailHTML []byte, sourceURL string) (*catalog.RawItemMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(detailHTML))
	if err != nil {
		return nil, fmt.Errorf("parse detail document: %w", err)
	}

	titleSel := doc.Find(e.sel.DetailTitle)
	if titleSel.Length() == 0 {
		return nil, &catalog.ParseError{URL: sourceURL, Element: "title"}
	}

	img := doc.Find(e.sel.DetailImage).First()
	src, ok := img.Attr("src")
	if img.Length() == 0 || !ok || src == "" {
		return nil, nil
	}

	info := doc.Find(e.sel.DetailInfo)
	if info.Length() == 0 {
		return nil, &catalog.ParseError{URL: sourceURL, Element: "description"}
	}

	author := doc.Find(e.sel.DetailAuthor)
	if author.Length() == 0 {
		return nil, &catalog.ParseError{URL: sourceURL, Element: "author"}
	}

	title, years := normalize.TitleYears(titleSel.First().Text())
	return &catalog.RawItemMetadata{
		SourceURL:   sourceURL,
		Title:       title,
		Years:       years,
		ImageURL:    e.absolute(src),
		Description: strings.TrimSpace(info.First().Text()),
		RawAuthor:   strings.TrimSpace(author.First().Text()),
	}, nil
}

func (e *Extractor) absolute(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return e.base.ResolveReference(ref).String()
}
