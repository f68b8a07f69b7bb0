package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khasanovbi/tretyakov-backend/internal/blob"
	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/store"
)

// Persister is the default Sink: author get-or-create, duplicate check,
// image bytes to blob storage, then the record insert. The blob write
// happens before the insert — its path is deterministic per item, so a
// replay just rewrites the same file.
type Persister struct {
	store  store.Store
	blobs  blob.Store
	logger *zap.Logger
}

// NewPersister builds a Persister over the given store and blob storage.
func NewPersister(st store.Store, blobs blob.Store, logger *zap.Logger) *Persister {
	return &Persister{
		store:  st,
		blobs:  blobs,
		logger: logger,
	}
}

// Persist writes one item. Returns store.ErrDuplicate when a record with
// the same source URL already exists; callers treat that as a skip.
func (p *Persister) Persist(ctx context.Context, item catalog.ItemMetadata, image []byte) error {
	authorID, err := p.store.GetOrCreateAuthor(ctx, item.Author)
	if err != nil {
		return fmt.Errorf("get or create author: %w", err)
	}

	// Fast pre-check; CreateRecord re-checks inside its transaction.
	exists, err := p.store.ExistsBySourceURL(ctx, item.SourceURL)
	if err != nil {
		return fmt.Errorf("check source url: %w", err)
	}
	if exists {
		return store.ErrDuplicate
	}

	path, err := p.blobs.Put(ctx, item.Filename, image)
	if err != nil {
		return fmt.Errorf("store image: %w", err)
	}

	if _, err := p.store.CreateRecord(ctx, store.NewRecord{
		AuthorID:    authorID,
		Title:       item.Title,
		Years:       item.Years,
		Description: item.Description,
		SourceURL:   item.SourceURL,
		ImagePath:   path,
	}); err != nil {
		return err
	}

	p.logger.Debug("record created",
		zap.String("url", item.SourceURL),
		zap.String("image_path", path),
	)
	return nil
}
