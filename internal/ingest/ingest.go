// Package ingest downloads item images and persists records through a
// single-writer sink. Image fetches fan out under a bounded gate; every
// write funnels through one consumer goroutine, so the backing store
// never sees overlapping write transactions.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/metrics"
	"github.com/khasanovbi/tretyakov-backend/internal/store"
)

// Sink persists one (metadata, image bytes) pair as an atomic unit.
type Sink interface {
	Persist(ctx context.Context, item catalog.ItemMetadata, image []byte) error
}

// Failure records one item whose image could not be ingested.
type Failure struct {
	URL string
	Err error
}

// Ingestor coordinates the image stage.
type Ingestor struct {
	fetcher     catalog.Fetcher
	sink        Sink
	concurrency int64
	logger      *zap.Logger
}

// New builds an Ingestor.
func New(fetcher catalog.Fetcher, sink Sink, concurrency int, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		fetcher:     fetcher,
		sink:        sink,
		concurrency: int64(concurrency),
		logger:      logger,
	}
}

type writeReq struct {
	item  catalog.ItemMetadata
	image []byte
}

// Run fetches every item's image under the gate and hands the pairs to
// the single writer. One item's failure never aborts its siblings; a
// duplicate record is a benign skip. Returns the number of records
// persisted and the per-item failures.
func (i *Ingestor) Run(ctx context.Context, items []catalog.ItemMetadata) (int, []Failure) {
	var (
		mu       sync.Mutex
		failures []Failure
		wg       sync.WaitGroup
	)
	gate := semaphore.NewWeighted(i.concurrency)
	writes := make(chan writeReq)

	fail := func(url string, err error) {
		metrics.ObserveImage(metrics.OutcomeFailed)
		i.logger.Error("image ingestion failed", zap.String("url", url), zap.Error(err))
		mu.Lock()
		failures = append(failures, Failure{URL: url, Err: err})
		mu.Unlock()
	}

	// Single writer: the only goroutine that touches the sink.
	ingested := 0
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for req := range writes {
			err := i.sink.Persist(ctx, req.item, req.image)
			switch {
			case errors.Is(err, store.ErrDuplicate):
				metrics.ObserveImage(metrics.OutcomeDuplicate)
				i.logger.Debug("skip duplicate record", zap.String("url", req.item.SourceURL))
			case err != nil:
				fail(req.item.SourceURL, fmt.Errorf("persist item: %w", err))
			default:
				metrics.ObserveImage(metrics.OutcomeOK)
				i.logger.Info("item saved", zap.String("title", req.item.Title))
				ingested++
			}
		}
	}()

	for _, item := range items {
		wg.Add(1)
		go func(item catalog.ItemMetadata) {
			defer wg.Done()

			image, err := i.fetchImage(ctx, gate, item.ImageURL)
			if err != nil {
				fail(item.SourceURL, err)
				return
			}
			select {
			case writes <- writeReq{item: item, image: image}:
			case <-ctx.Done():
				fail(item.SourceURL, fmt.Errorf("enqueue write: %w", ctx.Err()))
			}
		}(item)
	}
	wg.Wait()
	close(writes)
	<-writerDone

	return ingested, failures
}

func (i *Ingestor) fetchImage(ctx context.Context, gate *semaphore.Weighted, url string) ([]byte, error) {
	if err := gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire image gate: %w", err)
	}
	start := time.Now()
	image, err := i.fetcher.Fetch(ctx, url)
	gate.Release(1)
	metrics.ObserveFetchDuration("image", time.Since(start))
	if err != nil {
		return nil, err
	}
	return image, nil
}
