package store

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/pkg/logger"
)

const (
	// DefaultRetentionDays is the default number of days disposed records are kept
	DefaultRetentionDays = 14
	// CleanupSchedule is the cron schedule of the journal cleanup (daily at 3 AM)
	CleanupSchedule = "0 3 * * *"
)

// CleanupService periodically deletes old disposed session records
type CleanupService struct {
	store         SessionStore
	cron          *cron.Cron
	retentionDays int
	now           func() time.Time
	entryID       cron.EntryID
	mu            sync.RWMutex
}

// NewCleanupService creates a cleanup service for store
func NewCleanupService(store SessionStore, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	return &CleanupService{
		store:         store,
		cron:          cron.New(),
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Start schedules the cleanup job and runs one cleanup right away in the background
func (s *CleanupService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(CleanupSchedule, func() { s.Cleanup() })
	if err != nil {
		logger.Error("Failed to schedule journal cleanup", zap.Error(err))
		return err
	}
	s.entryID = entryID
	s.cron.Start()

	logger.Info("Journal cleanup service started",
		zap.String("schedule", CleanupSchedule),
		zap.Int("retention_days", s.retentionDays),
	)

	go s.Cleanup()
	return nil
}

// Stop stops the scheduler and waits for a running job
func (s *CleanupService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		logger.Info("Journal cleanup service stopped")
	}
}

// NextRun returns the next scheduled cleanup, zero before Start
func (s *CleanupService) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Cleanup deletes disposed records older than the retention period
func (s *CleanupService) Cleanup() (int64, error) {
	s.mu.RLock()
	days := s.retentionDays
	cutoff := s.now().AddDate(0, 0, -days)
	s.mu.RUnlock()

	startTime := time.Now()
	deleted, err := s.store.DeleteDisposedBefore(cutoff)
	if err != nil {
		logger.Error("Failed to clean up session journal",
			zap.Int("retention_days", days),
			zap.Error(err),
		)
		return 0, err
	}

	logger.Info("Journal cleanup completed",
		zap.Int64("deleted_count", deleted),
		zap.Int("retention_days", days),
		zap.Duration("duration", time.Since(startTime)),
	)
	return deleted, nil
}

// SetRetentionDays updates the retention period (takes effect on next cleanup)
func (s *CleanupService) SetRetentionDays(days int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if days <= 0 {
		days = DefaultRetentionDays
	}
	s.retentionDays = days
}
