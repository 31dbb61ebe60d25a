// Package recovery journals document sessions and clears the server caches
// of sessions that ended without being disposed.
package recovery

import (
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/document"
	"github.com/verustcode/reportviewer/internal/model"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/internal/store"
	"github.com/verustcode/reportviewer/pkg/logger"
)

// TrackedSession is the part of a report session the tracker observes.
// *document.ReportSession satisfies it.
type TrackedSession interface {
	ID() string
	Source() document.ReportSource
	Snapshot() document.Snapshot
	Subscribe(fn func(document.StatusChange)) (unsubscribe func())
}

// Tracker writes every status change of one session to the journal
type Tracker struct {
	store     store.SessionStore
	sessionID string
	log       *zap.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// Track creates the journal record of s and subscribes to its status changes
func Track(st store.SessionStore, serviceURL string, s TrackedSession) (*Tracker, error) {
	src := s.Source()
	snap := s.Snapshot()
	record := &model.SessionRecord{
		ID:         s.ID(),
		ServiceURL: serviceURL,
		FilePath:   src.FilePath,
		ReportName: src.ReportName,
		Paginated:  src.Paginated,
		CacheID:    snap.CacheID,
		Status:     string(snap.Status),
		State:      model.SessionStateActive,
	}
	if err := st.Create(record); err != nil {
		return nil, err
	}

	t := &Tracker{
		store:     st,
		sessionID: s.ID(),
		log:       logger.WithSession(s.ID(), "").Named("journal"),
	}
	t.unsubscribe = s.Subscribe(t.record)
	t.log.Debug("Session tracked", zap.String(logger.FieldReport, src.String()))
	return t, nil
}

// record is the status subscription
func (t *Tracker) record(change document.StatusChange) {
	err := t.store.RecordTransition(&model.StatusEvent{
		SessionID: change.SessionID,
		CacheID:   change.CacheID,
		OldStatus: string(change.Old),
		NewStatus: string(change.New),
		Version:   change.Version,
	})
	if err != nil {
		t.log.Warn("Failed to journal status change",
			zap.String(logger.FieldStatus, string(change.New)),
			zap.Error(err),
		)
		return
	}
	if change.New == reportapi.StatusCleared {
		t.Disposed()
	}
}

// RecordParameters stores the last committed parameter values
func (t *Tracker) RecordParameters(values []reportapi.ParameterValue) {
	params := make(model.JSONMap, len(values))
	for _, v := range values {
		params[v.Name] = v.Value
	}
	if err := t.store.UpdateParameters(t.sessionID, params); err != nil {
		t.log.Warn("Failed to journal parameters", zap.Error(err))
	}
}

// Disposed marks the record disposed. Dispose does not always produce a
// Cleared status change, so owners call this after a successful Dispose.
func (t *Tracker) Disposed() {
	if err := t.store.MarkDisposed(t.sessionID); err != nil {
		t.log.Warn("Failed to mark session disposed", zap.Error(err))
	}
}

// Close stops tracking
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}
