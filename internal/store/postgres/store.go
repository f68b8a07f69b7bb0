// Package postgres provides the Postgres-backed store implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
	"github.com/khasanovbi/tretyakov-backend/internal/store"
)

const uniqueViolation = "23505"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store persists paintings and authors in Postgres.
//
// It assumes a schema like:
//
//	CREATE TABLE authors (
//	    id UUID PRIMARY KEY,
//	    last_name TEXT NOT NULL,
//	    first_name TEXT NOT NULL DEFAULT '',
//	    middle_name TEXT NOT NULL DEFAULT '',
//	    UNIQUE (last_name, first_name, middle_name)
//	);
//
//	CREATE TABLE paintings (
//	    id UUID PRIMARY KEY,
//	    author_id UUID NOT NULL REFERENCES authors (id),
//	    title TEXT NOT NULL,
//	    years TEXT NOT NULL DEFAULT '',
//	    description TEXT NOT NULL DEFAULT '',
//	    site_url TEXT NOT NULL UNIQUE,
//	    image_path TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db dbConn
}

// New creates a Postgres store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{db: pool}, nil
}

// NewWithConn constructs a store from an existing connection (primarily
// for testing).
func NewWithConn(db dbConn) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is required")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// ListSourceURLs returns every persisted record's source URL.
func (s *Store) ListSourceURLs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT site_url FROM paintings`)
	if err != nil {
		return nil, fmt.Errorf("list source urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan source url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source urls: %w", err)
	}
	return urls, nil
}

// GetOrCreateAuthor resolves a name triple to an author id, inserting the
// author on first sight. The upsert keeps it correct under concurrent
// writers even though the ingestion sink serializes writes.
func (s *Store) GetOrCreateAuthor(ctx context.Context, name catalog.AuthorName) (uuid.UUID, error) {
	query := `
		INSERT INTO authors (id, last_name, first_name, middle_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (last_name, first_name, middle_name)
		DO UPDATE SET last_name = EXCLUDED.last_name
		RETURNING id
	`
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query,
		uuid.New(),
		name.LastName,
		name.FirstName,
		name.MiddleName,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get or create author: %w", err)
	}
	return id, nil
}

// ExistsBySourceURL reports whether a record with the URL exists.
func (s *Store) ExistsBySourceURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM paintings WHERE site_url = $1)`,
		url,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by source url: %w", err)
	}
	return exists, nil
}

// CreateRecord inserts one painting inside a transaction. The duplicate
// check and the insert commit together; a unique violation on site_url
// maps to store.ErrDuplicate either way.
func (s *Store) CreateRecord(ctx context.Context, rec store.NewRecord) (uuid.UUID, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin create record: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM paintings WHERE site_url = $1)`,
		rec.SourceURL,
	).Scan(&exists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check record exists: %w", err)
	}
	if exists {
		return uuid.Nil, store.ErrDuplicate
	}

	id := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO paintings (id, author_id, title, years, description, site_url, image_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		id,
		rec.AuthorID,
		rec.Title,
		rec.Years,
		rec.Description,
		rec.SourceURL,
		rec.ImagePath,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, store.ErrDuplicate
		}
		return uuid.Nil, fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit create record: %w", err)
	}
	return id, nil
}
