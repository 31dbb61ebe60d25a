package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/reportviewer/pkg/logger"
)

// journalBusyTimeoutMS is how long a writer waits for a lock held by another
// reportviewer process before failing with SQLITE_BUSY
const journalBusyTimeoutMS = 5000

// pragma is one SQLite setting applied to the journal connection
type pragma struct {
	name  string
	value string
}

// journalPragmas are applied before migration.
// Foreign keys are NOT part of this list: enabling them before the schema
// exists breaks migrations that touch referenced tables.
var journalPragmas = []pragma{
	// WAL lets `recover` read the journal while a `view` process writes to it
	{name: "journal_mode", value: "WAL"},
	// NORMAL is durable enough for a journal that only guards cache cleanup
	{name: "synchronous", value: "NORMAL"},
	// Concurrent processes queue on the write lock instead of failing at once
	{name: "busy_timeout", value: fmt.Sprint(journalBusyTimeoutMS)},
}

// SQLiteDriver is the Driver of the session journal
type SQLiteDriver struct{}

// Name returns the driver name
func (d *SQLiteDriver) Name() string {
	return "sqlite"
}

// Open returns the pure Go SQLite dialector for the journal file at dsn
func (d *SQLiteDriver) Open(dsn string) (gorm.Dialector, error) {
	return sqlite.Open(dsn), nil
}

// PreMigrationConfig limits the pool to one connection and applies the
// journal pragmas. A pragma that fails is logged and skipped; the journal
// still works without it.
func (d *SQLiteDriver) PreMigrationConfig(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// One connection per process: pragmas are per connection, and SQLite
	// serialises writers anyway
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	fields := make([]zap.Field, 0, len(journalPragmas))
	for _, p := range journalPragmas {
		if err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)).Error; err != nil {
			logger.Warn("Failed to apply journal pragma",
				zap.String("pragma", p.name),
				zap.Error(err),
			)
			continue
		}
		fields = append(fields, zap.String(p.name, p.value))
	}

	logger.Debug("SQLite pre-migration config applied", fields...)
	return nil
}

// PostMigrationConfig enables foreign key constraints once the schema exists
func (d *SQLiteDriver) PostMigrationConfig(db *gorm.DB) error {
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		logger.Warn("Failed to enable foreign keys", zap.Error(err))
	}
	logger.Debug("SQLite post-migration config applied", zap.Bool("foreign_keys", true))
	return nil
}
