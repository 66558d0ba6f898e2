// Package store caches raw fetched mail messages in a local SQLite
// database so that overlapping date-range runs do not refetch bodies from
// the IMAP server. Only raw message data is cached; extraction results are
// never persisted.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/eodex/internal/model"
)

// SQLiteStore is the message cache backed by a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// PutMessages inserts or replaces a batch of fetched messages.
func (s *SQLiteStore) PutMessages(
	ctx context.Context, msgs []model.EmailMessage,
) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO messages (
			folder, uid, message_id, subject, sender, date, body, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range msgs {
		_, err = stmt.ExecContext(ctx,
			m.Folder, m.UID, m.MessageID, m.Subject, m.From,
			m.Date.UTC(), m.Body, now,
		)
		if err != nil {
			return fmt.Errorf("caching message uid %d: %w", m.UID, err)
		}
	}

	return tx.Commit()
}

// GetMessages returns the cached messages for the given folder and UIDs,
// keyed by UID. UIDs missing from the cache are simply absent from the map.
func (s *SQLiteStore) GetMessages(
	ctx context.Context, folder string, uids []uint32,
) (map[uint32]model.EmailMessage, error) {
	result := make(map[uint32]model.EmailMessage)
	if len(uids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(
		"SELECT folder, uid, message_id, subject, sender, date, body FROM messages WHERE folder = ? AND uid IN (?)",
		folder, uids,
	)
	if err != nil {
		return nil, fmt.Errorf("building cache query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying message cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m    model.EmailMessage
			date time.Time
		)
		err := rows.Scan(
			&m.Folder, &m.UID, &m.MessageID, &m.Subject, &m.From,
			&date, &m.Body,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning cached message: %w", err)
		}
		m.Date = date
		result[m.UID] = m
	}

	return result, rows.Err()
}

// Count returns the number of cached messages across all folders.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM messages")
	if err != nil {
		return 0, fmt.Errorf("counting cached messages: %w", err)
	}
	return n, nil
}
