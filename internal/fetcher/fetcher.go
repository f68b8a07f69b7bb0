// Package fetcher implements the page fetcher using gocolly.
package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Colly issues single HTTP GETs through a shared collector. Each Fetch
// clones the base collector, so calls are independent and safe to run
// concurrently.
type Colly struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger
}

// NewColly builds a Colly fetcher.
func NewColly(cfg Config, logger *zap.Logger) *Colly {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []colly.CollectorOption{colly.Async(false)}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	base := colly.NewCollector(opts...)
	base.WithTransport(newHTTPTransport())
	base.SetRequestTimeout(cfg.Timeout)

	return &Colly{
		cfg:    cfg,
		base:   base,
		logger: logger,
	}
}

// Fetch performs one GET and returns the response body. Network errors,
// non-success statuses, and timeouts surface as *catalog.FetchError; no
// retries are attempted.
func (f *Colly) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	collector := f.base.Clone()

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		// The Visit goroutine is abandoned here and runs until the
		// request timeout; the buffered channel absorbs its send.
		return nil, &catalog.FetchError{URL: rawURL, Err: fmt.Errorf("fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if err != nil {
			return nil, &catalog.FetchError{URL: rawURL, StatusCode: status, Err: err}
		}
	}
	if fetchErr != nil {
		return nil, &catalog.FetchError{URL: rawURL, StatusCode: status, Err: fetchErr}
	}

	f.logger.Debug("page fetched", zap.String("url", rawURL), zap.Int("status", status))
	return body, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
