package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/verustcode/reportviewer/internal/model"
)

// SessionStore defines operations for SessionRecord and StatusEvent models.
type SessionStore interface {
	// SessionRecord CRUD
	Create(record *model.SessionRecord) error
	GetByID(id string) (*model.SessionRecord, error)
	Delete(id string) error

	// Lifecycle updates
	RecordTransition(event *model.StatusEvent) error
	UpdateParameters(id string, params model.JSONMap) error
	MarkDisposed(id string) error
	MarkFailed(id string, errMsg string) error

	// Queries
	ListOpen() ([]model.SessionRecord, error)
	ListRecent(limit int) ([]model.SessionRecord, error)
	GetEvents(id string) ([]model.StatusEvent, error)
	CountByState(state model.SessionState) (int64, error)

	// Cleanup
	DeleteDisposedBefore(cutoff time.Time) (int64, error)
}

// sessionStore implements SessionStore using GORM.
type sessionStore struct {
	db *gorm.DB
}

func newSessionStore(db *gorm.DB) SessionStore {
	return &sessionStore{db: db}
}

func (s *sessionStore) Create(record *model.SessionRecord) error {
	if record.State == "" {
		record.State = model.SessionStateActive
	}
	return s.db.Create(record).Error
}

func (s *sessionStore) GetByID(id string) (*model.SessionRecord, error) {
	var record model.SessionRecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *sessionStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.StatusEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.SessionRecord{}, "id = ?", id).Error
	})
}

// RecordTransition appends the event and moves the record to its status and cache
func (s *sessionStore) RecordTransition(event *model.StatusEvent) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         event.NewStatus,
			"status_changes": gorm.Expr("status_changes + 1"),
		}
		if event.CacheID != "" {
			updates["cache_id"] = event.CacheID
		}
		result := tx.Model(&model.SessionRecord{}).Where("id = ?", event.SessionID).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(event).Error
	})
}

func (s *sessionStore) UpdateParameters(id string, params model.JSONMap) error {
	return s.db.Model(&model.SessionRecord{}).Where("id = ?", id).Update("parameters", params).Error
}

func (s *sessionStore) MarkDisposed(id string) error {
	now := time.Now().UTC()
	return s.db.Model(&model.SessionRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":       model.SessionStateDisposed,
		"disposed_at": &now,
	}).Error
}

func (s *sessionStore) MarkFailed(id string, errMsg string) error {
	return s.db.Model(&model.SessionRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":         model.SessionStateFailed,
		"error_message": errMsg,
	}).Error
}

// ListOpen returns active records that still hold a cache id, oldest first
func (s *sessionStore) ListOpen() ([]model.SessionRecord, error) {
	var records []model.SessionRecord
	err := s.db.Where("state = ? AND cache_id <> ''", model.SessionStateActive).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (s *sessionStore) ListRecent(limit int) ([]model.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []model.SessionRecord
	err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

func (s *sessionStore) GetEvents(id string) ([]model.StatusEvent, error) {
	var events []model.StatusEvent
	err := s.db.Where("session_id = ?", id).Order("id ASC").Find(&events).Error
	return events, err
}

func (s *sessionStore) CountByState(state model.SessionState) (int64, error) {
	var count int64
	err := s.db.Model(&model.SessionRecord{}).Where("state = ?", state).Count(&count).Error
	return count, err
}

// DeleteDisposedBefore removes disposed records (and their events) disposed before cutoff
func (s *sessionStore) DeleteDisposedBefore(cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&model.SessionRecord{}).
			Select("id").
			Where("state = ? AND disposed_at < ?", model.SessionStateDisposed, cutoff)
		if err := tx.Where("session_id IN (?)", old).Delete(&model.StatusEvent{}).Error; err != nil {
			return err
		}
		result := tx.Where("state = ? AND disposed_at < ?", model.SessionStateDisposed, cutoff).
			Delete(&model.SessionRecord{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
