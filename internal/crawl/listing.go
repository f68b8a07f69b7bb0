// Package crawl implements the gated fan-out stages of the pipeline:
// listing discovery and detail extraction. Each stage admits at most N
// fetches at a time and joins on all of its tasks before returning.
package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/extract"
	"github.com/khasanovbi/tretyakov-backend/internal/metrics"
)

// PageFailure records one listing page that could not be processed.
type PageFailure struct {
	Page int
	Err  error
}

// ListingCrawler fetches and parses listing pages concurrently and
// aggregates the discovered item links. A single page's failure is
// isolated: it lands in the failure list and its siblings continue.
type ListingCrawler struct {
	fetcher     catalog.Fetcher
	extractor   *extract.Extractor
	pageURL     func(page int) string
	concurrency int64
	logger      *zap.Logger
}

// NewListing builds a ListingCrawler. pageURL maps a 1-based page number
// to its listing URL.
func NewListing(
	fetcher catalog.Fetcher,
	extractor *extract.Extractor,
	pageURL func(page int) string,
	concurrency int,
	logger *zap.Logger,
) *ListingCrawler {
	return &ListingCrawler{
		fetcher:     fetcher,
		extractor:   extractor,
		pageURL:     pageURL,
		concurrency: int64(concurrency),
		logger:      logger,
	}
}

// Crawl fetches pages 1..pages with at most the configured number of
// requests in flight and returns the union of extracted item links.
// Duplicate links across pages are preserved; the caller collapses them.
func (c *ListingCrawler) Crawl(ctx context.Context, pages int) ([]string, []PageFailure) {
	var (
		mu       sync.Mutex
		links    []string
		failures []PageFailure
		wg       sync.WaitGroup
	)
	gate := semaphore.NewWeighted(c.concurrency)

	for page := 1; page <= pages; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()

			pageLinks, err := c.crawlPage(ctx, gate, page)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.ObserveListingPage(metrics.OutcomeFailed)
				c.logger.Error("listing page failed", zap.Int("page", page), zap.Error(err))
				failures = append(failures, PageFailure{Page: page, Err: err})
				return
			}
			metrics.ObserveListingPage(metrics.OutcomeOK)
			c.logger.Debug("listing page crawled",
				zap.Int("page", page),
				zap.Int("links", len(pageLinks)),
			)
			links = append(links, pageLinks...)
		}(page)
	}
	wg.Wait()

	return links, failures
}

// crawlPage holds the gate only for the duration of the network call;
// parsing happens outside it.
func (c *ListingCrawler) crawlPage(ctx context.Context, gate *semaphore.Weighted, page int) ([]string, error) {
	url := c.pageURL(page)

	if err := gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire listing gate: %w", err)
	}
	start := time.Now()
	body, err := c.fetcher.Fetch(ctx, url)
	gate.Release(1)
	metrics.ObserveFetchDuration("listing", time.Since(start))
	if err != nil {
		return nil, err
	}

	links, err := c.extractor.ItemLinks(body, url)
	if err != nil {
		return nil, fmt.Errorf("extract item links: %w", err)
	}
	return links, nil
}
