// Package memory provides an in-memory store implementation used by
// tests and the memory db provider.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/store"
)

type record struct {
	id  uuid.UUID
	rec store.NewRecord
}

// Store keeps records in process memory. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	authors map[catalog.AuthorName]uuid.UUID
	records map[string]record
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		authors: make(map[catalog.AuthorName]uuid.UUID),
		records: make(map[string]record),
	}
}

// ListSourceURLs returns the source URLs of all stored records.
func (s *Store) ListSourceURLs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.records))
	for url := range s.records {
		urls = append(urls, url)
	}
	return urls, nil
}

// GetOrCreateAuthor resolves a name triple to an id, creating it on
// first sight.
func (s *Store) GetOrCreateAuthor(_ context.Context, name catalog.AuthorName) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.authors[name]; ok {
		return id, nil
	}
	id := uuid.New()
	s.authors[name] = id
	return id, nil
}

// ExistsBySourceURL reports whether a record with the URL exists.
func (s *Store) ExistsBySourceURL(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[url]
	return ok, nil
}

// CreateRecord stores one record, enforcing source-URL uniqueness.
func (s *Store) CreateRecord(_ context.Context, rec store.NewRecord) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.SourceURL]; ok {
		return uuid.Nil, store.ErrDuplicate
	}
	id := uuid.New()
	s.records[rec.SourceURL] = record{id: id, rec: rec}
	return id, nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() {}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
