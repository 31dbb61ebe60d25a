package store

import (
	"path/filepath"
	"testing"

	"github.com/verustcode/reportviewer/internal/database"
	"github.com/verustcode/reportviewer/internal/model"
)

// SetupTestDB opens a journal in a temporary directory. The connection is
// closed when the test ends.
func SetupTestDB(tb testing.TB) Store {
	tb.Helper()

	conn, err := database.Open(filepath.Join(tb.TempDir(), "journal.db"))
	if err != nil {
		tb.Fatalf("Failed to initialize test database: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(conn)
}

// CreateTestSession creates an active SessionRecord with default values.
// Fields can be overridden by passing functions that modify the record.
func CreateTestSession(tb testing.TB, s Store, id string, overrides ...func(*model.SessionRecord)) *model.SessionRecord {
	tb.Helper()

	record := &model.SessionRecord{
		ID:         id,
		ServiceURL: "http://localhost:8095",
		FilePath:   "Reports/Inventory.rdl",
		Paginated:  true,
		State:      model.SessionStateActive,
	}
	for _, override := range overrides {
		override(record)
	}

	if err := s.Session().Create(record); err != nil {
		tb.Fatalf("Failed to create test session: %v", err)
	}
	return record
}
