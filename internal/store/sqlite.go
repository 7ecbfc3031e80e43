package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/notice-client/internal/infrastructure/database"
	"github.com/nerrad567/notice-client/internal/notice"
	"github.com/nerrad567/notice-client/migrations"
)

// SQLiteHistory stores the history in the messages table of messages.db.
// Order is insertion order: the highest id is the newest message.
type SQLiteHistory struct {
	db     *database.DB
	logger Logger
}

// OpenSQLiteHistory opens the database and applies the embedded migrations.
func OpenSQLiteHistory(ctx context.Context, cfg database.Config, logger Logger) (*SQLiteHistory, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return &SQLiteHistory{db: db, logger: orNoop(logger)}, nil
}

// DB exposes the underlying database for health checks.
func (h *SQLiteHistory) DB() *database.DB {
	return h.db
}

// Load implements History.
func (h *SQLiteHistory) Load(ctx context.Context) []notice.StoredMessage {
	rows, err := h.db.QueryContext(ctx,
		"SELECT topic, title, content, timestamp FROM messages ORDER BY id DESC LIMIT ?",
		MaxMessages,
	)
	if err != nil {
		h.logger.Warn("querying message history", "error", err)
		return []notice.StoredMessage{}
	}
	defer rows.Close()

	msgs := []notice.StoredMessage{}
	for rows.Next() {
		var m notice.StoredMessage
		if err := rows.Scan(&m.Topic, &m.Title, &m.Content, &m.Timestamp); err != nil {
			h.logger.Warn("scanning message history", "error", err)
			return []notice.StoredMessage{}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		h.logger.Warn("iterating message history", "error", err)
		return []notice.StoredMessage{}
	}
	return msgs
}

// Save implements History.
func (h *SQLiteHistory) Save(ctx context.Context, msgs []notice.StoredMessage) error {
	msgs = capMessages(msgs)

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return fmt.Errorf("%w: clearing messages: %w", ErrPersistence, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	// Oldest first so the newest message gets the highest id.
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (topic, title, content, timestamp, received_at) VALUES (?, ?, ?, ?, ?)",
			m.Topic, m.Title, m.Content, m.Timestamp, now,
		); err != nil {
			return fmt.Errorf("%w: inserting message: %w", ErrPersistence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Prepend implements History.
func (h *SQLiteHistory) Prepend(ctx context.Context, msg notice.StoredMessage) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO messages (topic, title, content, timestamp, received_at) VALUES (?, ?, ?, ?, ?)",
		msg.Topic, msg.Title, msg.Content, msg.Timestamp, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("%w: inserting message: %w", ErrPersistence, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE id NOT IN (SELECT id FROM messages ORDER BY id DESC LIMIT ?)",
		MaxMessages,
	); err != nil {
		return fmt.Errorf("%w: pruning messages: %w", ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Close implements History.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
