// Package pipeline sequences the ingestion stages: page-count discovery,
// listing crawl, dedup against the store, detail crawl, image ingestion.
// Each stage joins on all of its concurrent work before the next begins.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/crawl"
	"github.com/khasanovbi/tretyakov-backend/internal/extract"
	"github.com/khasanovbi/tretyakov-backend/internal/ingest"
	"github.com/khasanovbi/tretyakov-backend/internal/store"
)

// Summary reports what one run did, including partial failures.
type Summary struct {
	PagesPlanned    int
	PagesCrawled    int
	PagesFailed     int
	ItemsDiscovered int
	ItemsNew        int
	ItemsParsed     int
	ItemsSkipped    int
	ItemsFailed     int
	ImagesIngested  int
	ImagesFailed    int
}

// Pipeline wires the stages together.
type Pipeline struct {
	fetcher   catalog.Fetcher
	extractor *extract.Extractor
	listings  *crawl.ListingCrawler
	details   *crawl.DetailCrawler
	ingestor  *ingest.Ingestor
	store     store.Store
	pageURL   func(page int) string
	logger    *zap.Logger
}

// New builds a Pipeline. pageURL maps a 1-based page number to its
// listing URL and must match the one given to the listing crawler.
func New(
	fetcher catalog.Fetcher,
	extractor *extract.Extractor,
	listings *crawl.ListingCrawler,
	details *crawl.DetailCrawler,
	ingestor *ingest.Ingestor,
	st store.Store,
	pageURL func(page int) string,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		listings:  listings,
		details:   details,
		ingestor:  ingestor,
		store:     st,
		pageURL:   pageURL,
		logger:    logger,
	}
}

// Run executes one full ingestion pass. maxPages bounds how many listing
// pages are crawled; zero means all pages the site reports. The returned
// error is fatal (page-count discovery or the persisted-URL read failed);
// everything else degrades to counters in the Summary.
func (p *Pipeline) Run(ctx context.Context, maxPages int) (Summary, error) {
	var s Summary

	pages, err := p.discoverPageCount(ctx)
	if err != nil {
		return s, err
	}
	if maxPages > 0 && maxPages < pages {
		pages = maxPages
	}
	s.PagesPlanned = pages

	p.logger.Info("crawling listing pages", zap.Int("pages", pages))
	links, pageFailures := p.listings.Crawl(ctx, pages)
	s.PagesFailed = len(pageFailures)
	s.PagesCrawled = pages - s.PagesFailed
	if err := ctx.Err(); err != nil {
		return s, fmt.Errorf("listing crawl aborted: %w", err)
	}

	discovered := uniqueURLs(links)
	s.ItemsDiscovered = len(discovered)

	persisted, err := p.store.ListSourceURLs(ctx)
	if err != nil {
		return s, fmt.Errorf("list persisted urls: %w", err)
	}
	fresh := NewURLs(discovered, persisted)
	s.ItemsNew = len(fresh)
	if len(fresh) == 0 {
		p.logger.Info("no new items discovered")
		return s, nil
	}

	p.logger.Info("fetching item metadata", zap.Int("items", len(fresh)))
	items, skipped, itemFailures := p.details.Crawl(ctx, fresh)
	s.ItemsParsed = len(items)
	s.ItemsSkipped = len(skipped)
	s.ItemsFailed = len(itemFailures)
	if err := ctx.Err(); err != nil {
		return s, fmt.Errorf("detail crawl aborted: %w", err)
	}
	if len(items) == 0 {
		p.logger.Info("no items parsed, nothing to ingest")
		return s, nil
	}

	p.logger.Info("fetching images", zap.Int("items", len(items)))
	ingested, imageFailures := p.ingestor.Run(ctx, items)
	s.ImagesIngested = ingested
	s.ImagesFailed = len(imageFailures)
	if err := ctx.Err(); err != nil {
		return s, fmt.Errorf("image ingestion aborted: %w", err)
	}

	p.logger.Info("run finished",
		zap.Int("pages", s.PagesCrawled),
		zap.Int("items_new", s.ItemsNew),
		zap.Int("images_ingested", s.ImagesIngested),
	)
	return s, nil
}

// discoverPageCount fetches the first listing page and reads the
// pagination bound. Failure here is fatal to the run: without the bound
// there is nothing to crawl, and a missing pagination control means the
// site layout changed.
func (p *Pipeline) discoverPageCount(ctx context.Context) (int, error) {
	url := p.pageURL(1)
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch first listing page: %w", err)
	}
	pages, err := p.extractor.PageCount(body, url)
	if err != nil {
		return 0, fmt.Errorf("discover page count: %w", err)
	}
	return pages, nil
}

// NewURLs returns the discovered URLs that are not yet persisted. Order
// of either input is irrelevant; the result preserves discovery order.
func NewURLs(discovered, persisted []string) []string {
	known := make(map[string]struct{}, len(persisted))
	for _, url := range persisted {
		known[url] = struct{}{}
	}
	var fresh []string
	for _, url := range discovered {
		if _, ok := known[url]; !ok {
			fresh = append(fresh, url)
		}
	}
	return fresh
}

// uniqueURLs collapses duplicate links discovered across listing pages,
// preserving first-seen order.
func uniqueURLs(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	var out []string
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}
