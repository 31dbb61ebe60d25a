// Package database provides the connection to the session journal.
// It uses GORM with SQLite for embedded storage, behind a driver abstraction.
package database

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verustcode/reportviewer/internal/model"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/logger"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init opens the journal at dbPath and migrates it. Only the first call
// takes effect.
func Init(dbPath string) error {
	var initErr error
	once.Do(func() {
		db, initErr = Open(dbPath)
	})
	return initErr
}

// Open creates a connection to the SQLite file at dbPath and runs the
// migrations. The parent directory is created when missing.
func Open(dbPath string) (*gorm.DB, error) {
	logger.Info("Opening session journal", zap.String("path", dbPath))

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("Failed to create database directory", zap.Error(err), zap.String("dir", dir))
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
	}

	driver := &SQLiteDriver{}
	dialector, err := driver.Open(dbPath)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to open database", err)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to database", err)
	}

	// Foreign keys stay off until the schema is migrated.
	if err := driver.PreMigrationConfig(conn); err != nil {
		logger.Error("Failed to apply pre-migration config", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to apply pre-migration config", err)
	}

	if err := migrate(conn); err != nil {
		return nil, err
	}

	if err := driver.PostMigrationConfig(conn); err != nil {
		logger.Error("Failed to apply post-migration config", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to apply post-migration config", err)
	}

	logger.Info("Session journal ready", zap.String("driver", driver.Name()))
	return conn, nil
}

// migrate runs auto-migration for all models
func migrate(conn *gorm.DB) error {
	models := model.AllModels()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run database migrations", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "failed to run database migrations", err)
	}
	logger.Debug("Database migrations completed", zap.Int("models", len(models)))
	return nil
}

// Get returns the database instance.
// Panics if the database hasn't been initialized.
func Get() *gorm.DB {
	if db == nil {
		panic("database not initialized, call Init first")
	}
	return db
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	logger.Info("Closing session journal")
	return sqlDB.Close()
}

// ResetForTesting closes the connection and allows Init to run again.
// WARNING: Only use this function in tests!
func ResetForTesting() {
	if db != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		db = nil
	}
	once = sync.Once{}
}

// Transaction executes a function within a database transaction
func Transaction(fn func(tx *gorm.DB) error) error {
	return Get().Transaction(fn)
}

// HealthCheck performs a simple health check on the database
func HealthCheck() error {
	if db == nil {
		return errors.New(errors.ErrCodeDBConnection, "database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	return sqlDB.Ping()
}
