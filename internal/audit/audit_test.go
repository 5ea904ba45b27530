package audit

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewRecorder(db)
}

func TestRecordAndList(t *testing.T) {
	r := newTestRecorder(t)

	err := r.Record("user-a", "cred-1", ActionCredentialCreated, SeverityInfo,
		nil,
		nil,
		map[string]interface{}{"server": "demo.broker.com"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	err = r.Record("user-a", "cred-1", ActionCredentialDeleted, SeverityHigh,
		map[string]interface{}{"name": "Main"},
		nil,
		nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	err = r.Record("user-b", "cred-2", ActionCredentialCreated, SeverityInfo, nil, nil, nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := r.ListByUser("user-a", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries for user-a, want 2", len(entries))
	}
	for _, e := range entries {
		if e.UserID != "user-a" {
			t.Errorf("entry user = %q, want user-a", e.UserID)
		}
		if e.EntryID == "" {
			t.Error("entry should have an ID")
		}
	}

	count, err := r.CountByCredential("cred-1")
	if err != nil {
		t.Fatalf("CountByCredential: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestRecordMarshalsValues(t *testing.T) {
	r := newTestRecorder(t)

	err := r.Record("user-a", "cred-1", ActionCredentialUpdated, SeverityMedium,
		map[string]interface{}{"name": "Old"},
		map[string]interface{}{"name": "New"},
		map[string]interface{}{"password_changed": false})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := r.ListByUser("user-a", 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListByUser: %v (%d entries)", err, len(entries))
	}

	e := entries[0]
	if !strings.Contains(e.OldValues, `"Old"`) {
		t.Errorf("old values = %q, want JSON with old name", e.OldValues)
	}
	if !strings.Contains(e.NewValues, `"New"`) {
		t.Errorf("new values = %q, want JSON with new name", e.NewValues)
	}
	if !strings.Contains(e.Metadata, "password_changed") {
		t.Errorf("metadata = %q, want JSON with password_changed", e.Metadata)
	}
}
