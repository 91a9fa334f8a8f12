// Package sqlstore persists albums in a relational database.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-profiles/album"
)

const createTable = `
CREATE TABLE IF NOT EXISTS albums (
	id VARCHAR(40) PRIMARY KEY,
	title VARCHAR(255) NOT NULL DEFAULT '',
	artist VARCHAR(255) NOT NULL DEFAULT '',
	release_year VARCHAR(16) NOT NULL DEFAULT '',
	genre VARCHAR(64) NOT NULL DEFAULT '',
	track_count INTEGER NOT NULL DEFAULT 0,
	album_id VARCHAR(64) NOT NULL DEFAULT ''
)`

const selectColumns = "id, title, artist, release_year, genre, track_count, album_id"

// Store implements album.Repository over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ album.Repository = (*Store)(nil)

// New wraps db; the caller owns the connection.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", dialect.Name, err)
	}
	return db, nil
}

// Migrate creates the albums table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM albums").Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", err)
	}
	return count, nil
}

func (s *Store) Save(ctx context.Context, a *album.Album) error {
	if a == nil {
		return fmt.Errorf("sqlstore: album must not be nil")
	}
	album.EnsureID(a)
	query := fmt.Sprintf("INSERT INTO albums (%s) VALUES (%s) %s", selectColumns, s.dialect.Placeholders(7), s.dialect.upsert)
	_, err := s.db.ExecContext(ctx, query, a.ID, a.Title, a.Artist, a.ReleaseYear, a.Genre, a.TrackCount, a.AlbumID)
	if err != nil {
		return fmt.Errorf("sqlstore: save %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) FindAll(ctx context.Context) ([]album.Album, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM albums ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find all: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []album.Album
	for rows.Next() {
		var a album.Album
		if err := rows.Scan(&a.ID, &a.Title, &a.Artist, &a.ReleaseYear, &a.Genre, &a.TrackCount, &a.AlbumID); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: rows: %w", err)
	}
	return out, nil
}
