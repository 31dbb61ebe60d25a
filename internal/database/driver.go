package database

import "gorm.io/gorm"

// Driver defines the database driver interface.
// Only SQLite is implemented.
type Driver interface {
	// Name returns the driver name (e.g., "sqlite")
	Name() string

	// Open returns a GORM dialector for dsn
	Open(dsn string) (gorm.Dialector, error)

	// PreMigrationConfig applies settings before migration (connection pool, WAL mode).
	// Foreign key constraints must not be enabled here.
	PreMigrationConfig(db *gorm.DB) error

	// PostMigrationConfig applies settings after migration (foreign key constraints)
	PostMigrationConfig(db *gorm.DB) error
}
