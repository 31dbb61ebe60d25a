// Package model defines the data models of the local session journal.
// All models use GORM for ORM operations with SQLite database.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONMap is a custom type for storing JSON maps in SQLite
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	data, err := json.Marshal(j)
	return string(data), err
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	return json.Unmarshal(bytes, j)
}

// SessionState is the journal's view of a tracked session
type SessionState string

const (
	// SessionStateActive means the server cache may still exist
	SessionStateActive SessionState = "active"
	// SessionStateDisposed means the server cache was cleared
	SessionStateDisposed SessionState = "disposed"
	// SessionStateFailed means clearing the cache was refused by the server
	SessionStateFailed SessionState = "failed"
)

// SessionRecord is the journal entry of one document session
type SessionRecord struct {
	ID        string    `gorm:"primaryKey;size:20" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Document identification
	ServiceURL string `gorm:"size:500;not null" json:"service_url"`
	FilePath   string `gorm:"size:500;not null;index" json:"file_path"`
	ReportName string `gorm:"size:255" json:"report_name,omitempty"`
	Paginated  bool   `json:"paginated"`

	// Server-side cache
	CacheID string `gorm:"size:100;index" json:"cache_id,omitempty"`
	Status  string `gorm:"size:20" json:"status"`

	// Journal state
	State         SessionState `gorm:"size:20;not null;index;default:active" json:"state"`
	StatusChanges int          `gorm:"default:0" json:"status_changes"`
	Parameters    JSONMap      `gorm:"type:text" json:"parameters,omitempty"` // last committed values by name
	ErrorMessage  string       `gorm:"type:text" json:"error_message,omitempty"`
	DisposedAt    *time.Time   `json:"disposed_at,omitempty"`

	Events []StatusEvent `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"events,omitempty"`
}

// TableName specifies the table name for SessionRecord
func (SessionRecord) TableName() string {
	return "session_records"
}

// IsOpen reports whether the record still refers to a live server cache
func (r *SessionRecord) IsOpen() bool {
	return r.State == SessionStateActive && r.CacheID != ""
}

// StatusEvent is one status transition of a tracked session
type StatusEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	SessionID string    `gorm:"size:20;not null;index" json:"session_id"`
	CacheID   string    `gorm:"size:100" json:"cache_id,omitempty"`
	OldStatus string    `gorm:"size:20" json:"old_status"`
	NewStatus string    `gorm:"size:20;not null" json:"new_status"`
	Version   uint64    `json:"version"`
}

// TableName specifies the table name for StatusEvent
func (StatusEvent) TableName() string {
	return "status_events"
}

// AllModels returns all models for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&SessionRecord{},
		&StatusEvent{},
	}
}
