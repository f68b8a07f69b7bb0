// Package store defines the storage boundary for persisted catalog
// records. The pipeline only ever talks to the Store interface; the
// backing engine lives behind it.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
)

// ErrDuplicate reports a uniqueness violation on the record's source URL.
// Rerun or concurrent ingestion of the same URL is an expected, benign
// race: callers treat this as a no-op skip.
var ErrDuplicate = errors.New("record for source url already exists")

// NewRecord carries one painting record to be persisted.
type NewRecord struct {
	AuthorID    uuid.UUID
	Title       string
	Years       string
	Description string
	SourceURL   string
	ImagePath   string
}

// Store is the persistence boundary for paintings and authors.
//
// CreateRecord is an atomic check-then-insert: it returns ErrDuplicate
// when a record with the same source URL already exists, and the
// uniqueness constraint holds even if the pre-check races with another
// writer.
type Store interface {
	// ListSourceURLs returns the source URLs of every persisted record.
	ListSourceURLs(ctx context.Context) ([]string, error)

	// GetOrCreateAuthor resolves a name triple to an author id, creating
	// the author on first sight.
	GetOrCreateAuthor(ctx context.Context, name catalog.AuthorName) (uuid.UUID, error)

	// ExistsBySourceURL reports whether a record with the URL exists.
	ExistsBySourceURL(ctx context.Context, url string) (bool, error)

	// CreateRecord persists one painting record.
	CreateRecord(ctx context.Context, rec NewRecord) (uuid.UUID, error)

	// Close releases the underlying resources.
	Close()
}
