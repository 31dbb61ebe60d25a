package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/verustcode/reportviewer/internal/model"
	"github.com/verustcode/reportviewer/pkg/logger"
)

func init() {
	logger.Init(logger.Config{
		Level:  "error",
		Format: "text",
	})
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	s := SetupTestDB(t)
	CreateTestSession(t, s, "s1", func(r *model.SessionRecord) {
		r.State = ""
		r.ReportName = "Summary"
	})

	got, err := s.Session().GetByID("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateActive, got.State)
	assert.Equal(t, "Summary", got.ReportName)
	assert.Nil(t, got.DisposedAt)

	_, err = s.Session().GetByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSessionStore_RecordTransition(t *testing.T) {
	s := SetupTestDB(t)
	CreateTestSession(t, s, "s1")

	require.NoError(t, s.Session().RecordTransition(&model.StatusEvent{
		SessionID: "s1", CacheID: "c1", OldStatus: "NotFound", NewStatus: "Loaded", Version: 1,
	}))
	require.NoError(t, s.Session().RecordTransition(&model.StatusEvent{
		SessionID: "s1", OldStatus: "Loaded", NewStatus: "Completed", Version: 2,
	}))

	got, err := s.Session().GetByID("s1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.CacheID, "an event without cache id keeps the known one")
	assert.Equal(t, "Completed", got.Status)
	assert.Equal(t, 2, got.StatusChanges)

	events, err := s.Session().GetEvents("s1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Loaded", events[0].NewStatus)
	assert.Equal(t, uint64(2), events[1].Version)

	err = s.Session().RecordTransition(&model.StatusEvent{SessionID: "nope", NewStatus: "Loaded"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	events, err = s.Session().GetEvents("nope")
	require.NoError(t, err)
	assert.Empty(t, events, "the event is rolled back with the failed update")
}

func TestSessionStore_ListOpen(t *testing.T) {
	s := SetupTestDB(t)
	CreateTestSession(t, s, "open", func(r *model.SessionRecord) { r.CacheID = "c1" })
	CreateTestSession(t, s, "nocache")
	CreateTestSession(t, s, "disposed", func(r *model.SessionRecord) { r.CacheID = "c2" })
	CreateTestSession(t, s, "failed", func(r *model.SessionRecord) { r.CacheID = "c3" })
	require.NoError(t, s.Session().MarkDisposed("disposed"))
	require.NoError(t, s.Session().MarkFailed("failed", "refused"))

	open, err := s.Session().ListOpen()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "open", open[0].ID)

	failed, err := s.Session().GetByID("failed")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStateFailed, failed.State)
	assert.Equal(t, "refused", failed.ErrorMessage)

	count, err := s.Session().CountByState(model.SessionStateActive)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	recent, err := s.Session().ListRecent(0)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
}

func TestSessionStore_UpdateParameters(t *testing.T) {
	s := SetupTestDB(t)
	CreateTestSession(t, s, "s1")

	require.NoError(t, s.Session().UpdateParameters("s1", model.JSONMap{"region": []any{"North"}}))
	got, err := s.Session().GetByID("s1")
	require.NoError(t, err)
	assert.Equal(t, []any{"North"}, got.Parameters["region"])
}

func TestSessionStore_DeleteDisposedBefore(t *testing.T) {
	s := SetupTestDB(t)
	old := time.Now().UTC().AddDate(0, 0, -30)

	CreateTestSession(t, s, "old")
	CreateTestSession(t, s, "fresh")
	CreateTestSession(t, s, "active")
	require.NoError(t, s.Session().RecordTransition(&model.StatusEvent{SessionID: "old", NewStatus: "Loaded"}))
	require.NoError(t, s.Session().MarkDisposed("old"))
	require.NoError(t, s.Session().MarkDisposed("fresh"))
	require.NoError(t, s.DB().Model(&model.SessionRecord{}).Where("id = ?", "old").Update("disposed_at", old).Error)

	deleted, err := s.Session().DeleteDisposedBefore(time.Now().AddDate(0, 0, -14))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.Session().GetByID("old")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	events, err := s.Session().GetEvents("old")
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = s.Session().GetByID("fresh")
	assert.NoError(t, err)
	_, err = s.Session().GetByID("active")
	assert.NoError(t, err)
}

func TestSessionStore_Delete(t *testing.T) {
	s := SetupTestDB(t)
	CreateTestSession(t, s, "s1")
	require.NoError(t, s.Session().RecordTransition(&model.StatusEvent{SessionID: "s1", NewStatus: "Loaded"}))

	require.NoError(t, s.Session().Delete("s1"))
	_, err := s.Session().GetByID("s1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStore_Transaction(t *testing.T) {
	s := SetupTestDB(t)

	err := s.Transaction(func(tx Store) error {
		CreateTestSession(t, tx, "s1")
		return gorm.ErrInvalidTransaction
	})
	assert.ErrorIs(t, err, gorm.ErrInvalidTransaction)
	_, err = s.Session().GetByID("s1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCleanupService(t *testing.T) {
	s := SetupTestDB(t)
	CreateTestSession(t, s, "old")
	require.NoError(t, s.Session().MarkDisposed("old"))

	svc := NewCleanupService(s.Session(), 0)
	assert.Equal(t, DefaultRetentionDays, svc.retentionDays)
	svc.now = func() time.Time { return time.Now().AddDate(0, 0, 20) }

	deleted, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	svc.SetRetentionDays(-1)
	assert.Equal(t, DefaultRetentionDays, svc.retentionDays)
}

func TestCleanupService_StartStop(t *testing.T) {
	s := SetupTestDB(t)
	svc := NewCleanupService(s.Session(), 7)
	assert.True(t, svc.NextRun().IsZero())

	require.NoError(t, svc.Start())
	next := svc.NextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, 0, next.Minute())
	svc.Stop()
}
