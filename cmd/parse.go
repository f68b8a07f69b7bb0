package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/khasanovbi/tretyakov-backend/internal/app"
	"github.com/khasanovbi/tretyakov-backend/internal/crawl"
	"github.com/khasanovbi/tretyakov-backend/internal/extract"
	"github.com/khasanovbi/tretyakov-backend/internal/fetcher"
	"github.com/khasanovbi/tretyakov-backend/internal/ingest"
	"github.com/khasanovbi/tretyakov-backend/internal/pipeline"
)

// newParseCmd creates the 'parse' subcommand, which runs one full
// ingestion pass over the catalog.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [pages]",
		Short: "Crawls the catalog and ingests new paintings",
		Long: `Runs the ingestion pipeline: discovers the listing page count,
crawls listing pages, skips items already in the store, fetches metadata
and images for the rest, and persists them. The optional positional
argument caps how many listing pages are crawled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runParseCommand,
	}
}

func runParseCommand(cmd *cobra.Command, args []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	maxPages := 0
	if len(args) == 1 {
		maxPages, err = strconv.Atoi(args[0])
		if err != nil || maxPages <= 0 {
			return fmt.Errorf("pages must be a positive integer, got %q", args[0])
		}
	}

	p, err := buildPipeline(a)
	if err != nil {
		return err
	}

	summary, err := p.Run(cmd.Context(), maxPages)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	cmd.Printf("Successfully parsed %d page(s)\n", summary.PagesPlanned)
	return nil
}

func buildPipeline(a *app.App) (*pipeline.Pipeline, error) {
	cfg := a.Config

	f := fetcher.NewColly(fetcher.Config{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, a.Logger)

	ex, err := extract.New(cfg.Source.BaseURL, extract.DefaultSelectors())
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	listings := crawl.NewListing(f, ex, cfg.ListingURL, cfg.Crawler.ListingConcurrency, a.Logger)
	details := crawl.NewDetail(f, ex, cfg.Crawler.DetailConcurrency, a.Logger)
	persister := ingest.NewPersister(a.Store, a.Blobs, a.Logger)
	ingestor := ingest.New(f, persister, cfg.Crawler.ImageConcurrency, a.Logger)

	return pipeline.New(f, ex, listings, details, ingestor, a.Store, cfg.ListingURL, a.Logger), nil
}
