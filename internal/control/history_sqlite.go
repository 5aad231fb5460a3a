package control

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// historySchema creates the transition table on first use. The schema is
// small enough that a migration framework would be overkill here.
const historySchema = `
CREATE TABLE IF NOT EXISTS gpio_transitions (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    device          TEXT    NOT NULL,
    action          TEXT    NOT NULL,
    trigger_source  TEXT    NOT NULL,
    session_seconds REAL    NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_gpio_transitions_device
    ON gpio_transitions (device, created_at);
`

// SQLiteTransitionRepository implements TransitionRepository using SQLite.
type SQLiteTransitionRepository struct {
	db *sql.DB
}

// NewSQLiteTransitionRepository creates a repository over an open SQLite
// connection and ensures the transition table exists.
func NewSQLiteTransitionRepository(ctx context.Context, db *sql.DB) (*SQLiteTransitionRepository, error) {
	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		return nil, fmt.Errorf("creating transition history schema: %w", err)
	}
	return &SQLiteTransitionRepository{db: db}, nil
}

// Record appends a transition record.
func (r *SQLiteTransitionRepository) Record(ctx context.Context, entry TransitionEntry) error {
	if entry.Device == "" {
		return fmt.Errorf("device name is required")
	}
	if entry.Action != HistoryActionOn && entry.Action != HistoryActionOff {
		return fmt.Errorf("invalid action %q", entry.Action)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO gpio_transitions (device, action, trigger_source, session_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.Device,
		entry.Action,
		entry.Trigger,
		entry.SessionSeconds,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting transition record: %w", err)
	}
	return nil
}

// GetHistory returns recent transition records for a device, newest first.
// The limit defaults to 50 and is clamped to 200.
func (r *SQLiteTransitionRepository) GetHistory(ctx context.Context, device string, limit int) ([]TransitionEntry, error) {
	if device == "" {
		return nil, fmt.Errorf("device name is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device, action, trigger_source, session_seconds, created_at
		 FROM gpio_transitions
		 WHERE device = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		device,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transition history: %w", err)
	}
	defer rows.Close()

	entries := make([]TransitionEntry, 0, limit)
	for rows.Next() {
		var entry TransitionEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Device,
			&entry.Action,
			&entry.Trigger,
			&entry.SessionSeconds,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning transition record: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transition records: %w", err)
	}
	return entries, nil
}
