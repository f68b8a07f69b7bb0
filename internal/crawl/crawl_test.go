package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/extract"
)

const baseURL = "https://gallery.test"

// fakeFetcher serves canned bodies per URL and tracks how many fetches
// are in flight simultaneously.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	delay     time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.responses[url]
	if !ok {
		return nil, &catalog.FetchError{URL: url, StatusCode: 404, Err: errors.New("not found")}
	}
	return body, nil
}

func listingPage(hrefs ...string) []byte {
	page := `<div class="collections__list">`
	for _, href := range hrefs {
		page += fmt.Sprintf(`<a class="collections-item" href=%q></a>`, href)
	}
	return []byte(page + `</div>`)
}

func detailPage(title, author, imgSrc string) []byte {
	return []byte(fmt.Sprintf(`<html><body>
<div class="exhibit-info__title">%s</div>
<div class="exhibit-info__author"><a>%s</a></div>
<div class="exhibit-slide"><img src=%q/></div>
<div class="exhibit__info"><p>Описание.</p></div>
</body></html>`, title, author, imgSrc))
}

func pageURL(page int) string {
	return fmt.Sprintf("%s/collection/?page=%d", baseURL, page)
}

func newTestExtractor(t *testing.T) *extract.Extractor {
	t.Helper()
	e, err := extract.New(baseURL, extract.DefaultSelectors())
	require.NoError(t, err)
	return e
}

func TestListingCrawlerAggregatesLinks(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: map[string][]byte{
		pageURL(1): listingPage("/collection/a/", "/collection/b/"),
		pageURL(2): listingPage("/collection/b/", "/collection/c/"),
	}}
	c := NewListing(fetcher, newTestExtractor(t), pageURL, 10, zap.NewNop())

	links, failures := c.Crawl(context.Background(), 2)
	require.Empty(t, failures)
	// Duplicates across pages are preserved; the caller collapses them.
	require.Len(t, links, 4)
	require.ElementsMatch(t, []string{
		baseURL + "/collection/a/",
		baseURL + "/collection/b/",
		baseURL + "/collection/b/",
		baseURL + "/collection/c/",
	}, links)
}

func TestListingCrawlerIsolatesPageFailures(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		responses: map[string][]byte{
			pageURL(1): listingPage("/collection/a/"),
			pageURL(3): listingPage("/collection/c/"),
		},
		errs: map[string]error{
			pageURL(2): &catalog.FetchError{URL: pageURL(2), Err: errors.New("boom")},
		},
	}
	c := NewListing(fetcher, newTestExtractor(t), pageURL, 10, zap.NewNop())

	links, failures := c.Crawl(context.Background(), 3)
	require.Len(t, failures, 1)
	require.Equal(t, 2, failures[0].Page)
	require.ElementsMatch(t, []string{
		baseURL + "/collection/a/",
		baseURL + "/collection/c/",
	}, links)
}

func TestListingCrawlerRespectsConcurrencyBound(t *testing.T) {
	t.Parallel()

	responses := make(map[string][]byte)
	for page := 1; page <= 40; page++ {
		responses[pageURL(page)] = listingPage(fmt.Sprintf("/collection/item-%d/", page))
	}
	fetcher := &fakeFetcher{responses: responses, delay: 5 * time.Millisecond}

	const limit = 3
	c := NewListing(fetcher, newTestExtractor(t), pageURL, limit, zap.NewNop())

	links, failures := c.Crawl(context.Background(), 40)
	require.Empty(t, failures)
	require.Len(t, links, 40)
	require.LessOrEqual(t, fetcher.maxInFlight.Load(), int64(limit))
}

func TestListingCrawlerParseFailureIsRecorded(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{responses: map[string][]byte{
		pageURL(1): []byte("<html><body>layout changed</body></html>"),
	}}
	c := NewListing(fetcher, newTestExtractor(t), pageURL, 2, zap.NewNop())

	links, failures := c.Crawl(context.Background(), 1)
	require.Empty(t, links)
	require.Len(t, failures, 1)

	var parseErr *catalog.ParseError
	require.True(t, errors.As(failures[0].Err, &parseErr))
}

func TestDetailCrawlerNormalizesItems(t *testing.T) {
	t.Parallel()

	itemURL := baseURL + "/collection/a/"
	fetcher := &fakeFetcher{responses: map[string][]byte{
		itemURL: detailPage("Утро в сосновом лесу. 1889", "Шишкин Иван Иванович", "/img/a.jpg"),
	}}
	c := NewDetail(fetcher, newTestExtractor(t), 5, zap.NewNop())

	items, skipped, failures := c.Crawl(context.Background(), []string{itemURL})
	require.Empty(t, skipped)
	require.Empty(t, failures)
	require.Len(t, items, 1)

	item := items[0]
	require.Equal(t, itemURL, item.SourceURL)
	require.Equal(t, "Утро в сосновом лесу", item.Title)
	require.Equal(t, "1889", item.Years)
	require.Equal(t, catalog.AuthorName{
		LastName:   "Шишкин",
		FirstName:  "Иван",
		MiddleName: "Иванович",
	}, item.Author)
	require.NotEmpty(t, item.Filename)
}

func TestDetailCrawlerSkipsImagelessItems(t *testing.T) {
	t.Parallel()

	withImage := baseURL + "/collection/a/"
	noImage := baseURL + "/collection/b/"
	fetcher := &fakeFetcher{responses: map[string][]byte{
		withImage: detailPage("Название. 1900", "Иванов", "/img/a.jpg"),
		noImage: []byte(`<html><body>
<div class="exhibit-info__title">Без изображения</div>
<div class="exhibit-info__author"><a>Иванов</a></div>
<div class="exhibit__info"><p>Описание.</p></div>
</body></html>`),
	}}
	c := NewDetail(fetcher, newTestExtractor(t), 5, zap.NewNop())

	items, skipped, failures := c.Crawl(context.Background(), []string{withImage, noImage})
	require.Empty(t, failures)
	require.Equal(t, []string{noImage}, skipped)
	require.Len(t, items, 1)
	require.Equal(t, withImage, items[0].SourceURL)
}

func TestDetailCrawlerIsolatesItemFailures(t *testing.T) {
	t.Parallel()

	good := baseURL + "/collection/a/"
	bad := baseURL + "/collection/b/"
	fetcher := &fakeFetcher{
		responses: map[string][]byte{
			good: detailPage("Название. 1900", "Иванов", "/img/a.jpg"),
		},
		errs: map[string]error{
			bad: &catalog.FetchError{URL: bad, Err: errors.New("boom")},
		},
	}
	c := NewDetail(fetcher, newTestExtractor(t), 5, zap.NewNop())

	items, _, failures := c.Crawl(context.Background(), []string{good, bad})
	require.Len(t, items, 1)
	require.Len(t, failures, 1)
	require.Equal(t, bad, failures[0].URL)
}

func TestDetailCrawlerRespectsConcurrencyBound(t *testing.T) {
	t.Parallel()

	responses := make(map[string][]byte)
	urls := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		url := fmt.Sprintf("%s/collection/item-%d/", baseURL, i)
		urls = append(urls, url)
		responses[url] = detailPage("Название. 1900", "Иванов", "/img/a.jpg")
	}
	fetcher := &fakeFetcher{responses: responses, delay: 5 * time.Millisecond}

	const limit = 4
	c := NewDetail(fetcher, newTestExtractor(t), limit, zap.NewNop())

	items, skipped, failures := c.Crawl(context.Background(), urls)
	require.Empty(t, skipped)
	require.Empty(t, failures)
	require.Len(t, items, 30)
	require.LessOrEqual(t, fetcher.maxInFlight.Load(), int64(limit))
}

func TestCrawlCancellationStopsPendingWork(t *testing.T) {
	t.Parallel()

	responses := make(map[string][]byte)
	for page := 1; page <= 20; page++ {
		responses[pageURL(page)] = listingPage("/collection/a/")
	}
	fetcher := &fakeFetcher{responses: responses, delay: 50 * time.Millisecond}
	c := NewListing(fetcher, newTestExtractor(t), pageURL, 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, failures := c.Crawl(ctx, 20)
	require.NotEmpty(t, failures)
}
