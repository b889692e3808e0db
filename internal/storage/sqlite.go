package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"comment-scout/pkg/models"
)

const commentsSchema = `
CREATE TABLE IF NOT EXISTS comments (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	source_item_url TEXT NOT NULL,
	item_title      TEXT NOT NULL,
	content         TEXT NOT NULL,
	matched_keyword TEXT NOT NULL,
	author          TEXT,
	published_at    TEXT,
	observed_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS comments_item ON comments (source_item_url);
`

// SQLiteSink inserts records into a local comments table
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens or creates the database at path
func NewSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, commentsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

// Publish inserts the batch in one transaction
func (s *SQLiteSink) Publish(ctx context.Context, records []models.CommentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO comments
		(source_item_url, item_title, content, matched_keyword, author, published_at, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		var author, publishedAt sql.NullString
		if r.Author != nil {
			author = sql.NullString{String: *r.Author, Valid: true}
		}
		if r.PublishedAt != nil {
			publishedAt = sql.NullString{String: r.PublishedAt.Format(models.TimeLayout), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			r.SourceItemURL, r.ItemTitle, r.Content, r.MatchedKeyword,
			author, publishedAt, r.ObservedAt.Format(models.TimeLayout),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
