// Package catalog defines core types shared across pipeline stages.
package catalog

import "context"

// AuthorName is the structured decomposition of a raw author string.
// FirstName and MiddleName are empty when the source string did not
// carry them.
type AuthorName struct {
	LastName   string
	FirstName  string
	MiddleName string
}

// RawItemMetadata holds the fields lifted from one detail page before
// normalization. It lives only inside the detail crawl stage.
type RawItemMetadata struct {
	SourceURL   string
	Title       string
	Years       string
	ImageURL    string
	Description string
	RawAuthor   string
}

// ItemMetadata is the normalized record handed to the image ingestor:
// RawItemMetadata plus the structured author name and the derived
// on-disk image filename.
type ItemMetadata struct {
	SourceURL   string
	Title       string
	Years       string
	ImageURL    string
	Description string
	Author      AuthorName
	Filename    string
}

// Fetcher issues one HTTP GET and returns the response body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
