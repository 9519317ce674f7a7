// Package memory provides the optional SQLite exchange log. It records
// completed query/reply pairs for inspection; it is not a session store and
// the bridge runs unchanged without it.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"eventmind/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.ExchangeStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.ExchangeStore = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS exchanges (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		query           TEXT NOT NULL,
		reply           TEXT,
		reply_kind      TEXT NOT NULL,
		latency_ms      INTEGER DEFAULT 0,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_conv ON exchanges(conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) EnsureConversation(ctx context.Context, id, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, user_id, created_at) VALUES (?, ?, ?)`,
		id, userID, time.Now(),
	)
	return err
}

func (s *SQLiteStore) AddExchange(ctx context.Context, convID string, ex domain.Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (conversation_id, query, reply, reply_kind, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		convID, ex.Query, ex.Reply, ex.ReplyKind, ex.LatencyMs, ex.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) RecentExchanges(ctx context.Context, convID string, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, query, reply, reply_kind, latency_ms, created_at
		 FROM exchanges WHERE conversation_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		convID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []domain.Exchange
	for rows.Next() {
		var ex domain.Exchange
		if err := rows.Scan(&ex.ID, &ex.ConvID, &ex.Query, &ex.Reply, &ex.ReplyKind, &ex.LatencyMs, &ex.CreatedAt); err != nil {
			return nil, err
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
