// Package ledger persists the set of published article ids so that a
// restart never republishes an article.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS published (
	article_id   TEXT PRIMARY KEY,
	published_at TIMESTAMP NOT NULL
)`

// SQLite is a publish ledger backed by an embedded SQLite database.
// Safe for concurrent use; database/sql serializes access.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the ledger database at dsn and ensures the schema
// exists. Use ":memory:" for an ephemeral ledger in tests.
func Open(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// A single connection keeps in-memory databases coherent and serializes
	// writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (l *SQLite) Close() error {
	return l.db.Close()
}

// Contains reports whether the article id has been published.
func (l *SQLite) Contains(ctx context.Context, id string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM published WHERE article_id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return true, nil
}

// FilterNew returns the subset of ids that have not been published yet,
// preserving input order.
func (l *SQLite) FilterNew(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := l.db.QueryContext(ctx,
		"SELECT article_id FROM published WHERE article_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("ledger filter query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	published := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ledger filter scan: %w", err)
		}
		published[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger filter rows: %w", err)
	}

	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		if !published[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

// Record marks the given article ids as published. All ids are committed in
// a single transaction; Record returns only after the commit is durable.
// Already-recorded ids are ignored.
func (l *SQLite) Record(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO published (article_id, published_at) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("ledger prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	publishedAt := l.now().UTC()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, publishedAt); err != nil {
			return fmt.Errorf("ledger insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger commit: %w", err)
	}
	return nil
}
