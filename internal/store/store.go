// Package store provides the data access layer of the session journal.
// It keeps GORM queries out of the packages that track and recover sessions.
package store

import "gorm.io/gorm"

// Store aggregates all data store interfaces.
type Store interface {
	Session() SessionStore

	// DB returns the underlying database connection for advanced operations.
	// Use sparingly - prefer using specific store methods.
	DB() *gorm.DB

	// Transaction executes operations within a database transaction.
	Transaction(fn func(Store) error) error
}

// gormStore implements Store interface using GORM.
type gormStore struct {
	db           *gorm.DB
	sessionStore SessionStore
}

// NewStore creates a new Store instance with GORM backend.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:           db,
		sessionStore: newSessionStore(db),
	}
}

func (s *gormStore) Session() SessionStore {
	return s.sessionStore
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{
			db:           tx,
			sessionStore: newSessionStore(tx),
		})
	})
}
