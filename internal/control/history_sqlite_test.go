package control

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// openHistoryDB creates a repository over a temporary SQLite file.
func openHistoryDB(t *testing.T) *SQLiteTransitionRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	repo, err := NewSQLiteTransitionRepository(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLiteTransitionRepository() error = %v", err)
	}
	return repo
}

func TestHistoryRecordAndGet(t *testing.T) {
	repo := openHistoryDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []TransitionEntry{
		{Device: "pump", Action: HistoryActionOn, Trigger: string(TriggerManual), CreatedAt: base},
		{Device: "pump", Action: HistoryActionOff, Trigger: string(TriggerTimer), SessionSeconds: 30, CreatedAt: base.Add(30 * time.Second)},
		{Device: "buzzer", Action: HistoryActionOn, Trigger: string(TriggerManual), CreatedAt: base.Add(time.Minute)},
	}
	for _, entry := range entries {
		if err := repo.Record(ctx, entry); err != nil {
			t.Fatalf("Record(%+v) error = %v", entry, err)
		}
	}

	got, err := repo.GetHistory(ctx, "pump", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetHistory() returned %d entries, want 2", len(got))
	}

	// Newest first.
	if got[0].Action != HistoryActionOff || got[0].SessionSeconds != 30 {
		t.Errorf("first entry = %+v, want the off record", got[0])
	}
	if got[1].Action != HistoryActionOn {
		t.Errorf("second entry = %+v, want the on record", got[1])
	}
	if got[0].ID == 0 {
		t.Error("ID not populated from the database")
	}
}

func TestHistoryRecordValidation(t *testing.T) {
	repo := openHistoryDB(t)
	ctx := context.Background()

	if err := repo.Record(ctx, TransitionEntry{Action: HistoryActionOn}); err == nil {
		t.Error("Record() with empty device should fail")
	}
	if err := repo.Record(ctx, TransitionEntry{Device: "pump", Action: "toggled"}); err == nil {
		t.Error("Record() with unknown action should fail")
	}
}

func TestHistoryLimitClamping(t *testing.T) {
	repo := openHistoryDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		entry := TransitionEntry{
			Device:    "relay",
			Action:    HistoryActionOn,
			Trigger:   string(TriggerManual),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Record(ctx, entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	// Zero limit falls back to the default of 50.
	got, err := repo.GetHistory(ctx, "relay", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(got) != defaultHistoryLimit {
		t.Errorf("GetHistory(limit=0) returned %d entries, want %d", len(got), defaultHistoryLimit)
	}

	// Oversized limits are clamped rather than rejected.
	got, err = repo.GetHistory(ctx, "relay", 10000)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(got) != 60 {
		t.Errorf("GetHistory(limit=10000) returned %d entries, want all 60", len(got))
	}
}

func TestHistoryUnknownDevice(t *testing.T) {
	repo := openHistoryDB(t)

	got, err := repo.GetHistory(context.Background(), "never-seen", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("GetHistory() for unknown device returned %d entries, want 0", len(got))
	}

	if _, err := repo.GetHistory(context.Background(), "", 10); err == nil {
		t.Error("GetHistory() with empty device should fail")
	}
}
