package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndNilLog(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	log, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer log.Close()

	entry := Entry{
		DeliveryID: "delivery-1",
		Identity:   "alice",
		Targets:    []string{"jsp", "zbee"},
		Outcome:    "non_permissible_repository_for_key",
		Status:     403,
		Duration:   12 * time.Millisecond,
	}
	if err := log.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	var count int
	row := log.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM delivery_log WHERE delivery_id = ? AND targets = ?`,
		"delivery-1", "jsp,zbee")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	// A nil log is a valid no-op.
	var nilLog *Log
	if err := nilLog.Record(ctx, entry); err != nil {
		t.Errorf("nil log Record() error = %v", err)
	}
	if err := nilLog.Close(); err != nil {
		t.Errorf("nil log Close() error = %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("Open(\"\") should fail")
	}
}
