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
	"github.com/khasanovbi/tretyakov-backend/internal/normalize"
)

// ItemFailure records one detail page that could not be processed.
type ItemFailure struct {
	URL string
	Err error
}

// DetailCrawler fetches and parses detail pages concurrently, applies
// normalization, and returns the successfully normalized records. A bad
// item never aborts the batch: image-less pages are skipped, other
// failures land in the failure list.
type DetailCrawler struct {
	fetcher     catalog.Fetcher
	extractor   *extract.Extractor
	concurrency int64
	logger      *zap.Logger
}

// NewDetail builds a DetailCrawler.
func NewDetail(
	fetcher catalog.Fetcher,
	extractor *extract.Extractor,
	concurrency int,
	logger *zap.Logger,
) *DetailCrawler {
	return &DetailCrawler{
		fetcher:     fetcher,
		extractor:   extractor,
		concurrency: int64(concurrency),
		logger:      logger,
	}
}

// Crawl processes the given detail-page URLs with at most the configured
// number of fetches in flight. It returns the normalized records, the
// URLs skipped for lacking an image, and the per-item failures.
func (c *DetailCrawler) Crawl(ctx context.Context, urls []string) ([]catalog.ItemMetadata, []string, []ItemFailure) {
	var (
		mu       sync.Mutex
		items    []catalog.ItemMetadata
		skipped  []string
		failures []ItemFailure
		wg       sync.WaitGroup
	)
	gate := semaphore.NewWeighted(c.concurrency)

	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()

			raw, err := c.crawlItem(ctx, gate, url)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				metrics.ObserveDetailPage(metrics.OutcomeFailed)
				c.logger.Error("detail page failed", zap.String("url", url), zap.Error(err))
				failures = append(failures, ItemFailure{URL: url, Err: err})
			case raw == nil:
				metrics.ObserveDetailPage(metrics.OutcomeSkipped)
				c.logger.Warn("image not found, item skipped", zap.String("url", url))
				skipped = append(skipped, url)
			default:
				metrics.ObserveDetailPage(metrics.OutcomeOK)
				items = append(items, normalize.Item(*raw))
			}
		}(url)
	}
	wg.Wait()

	return items, skipped, failures
}

func (c *DetailCrawler) crawlItem(ctx context.Context, gate *semaphore.Weighted, url string) (*catalog.RawItemMetadata, error) {
	if err := gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire detail gate: %w", err)
	}
	c.logger.Debug("getting item metadata", zap.String("url", url))
	start := time.Now()
	body, err := c.fetcher.Fetch(ctx, url)
	gate.Release(1)
	metrics.ObserveFetchDuration("detail", time.Since(start))
	if err != nil {
		return nil, err
	}

	raw, err := c.extractor.ItemMetadata(body, url)
	if err != nil {
		return nil, fmt.Errorf("extract item metadata: %w", err)
	}
	return raw, nil
}
