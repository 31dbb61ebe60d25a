package recovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/model"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/internal/store"
	"github.com/verustcode/reportviewer/pkg/logger"
)

// CacheClearer clears server-side caches. *reportapi.Client satisfies it.
type CacheClearer interface {
	BaseURL() string
	Clear(ctx context.Context, cacheID string) (*reportapi.ClearResult, error)
}

// Result summarises one recovery pass
type Result struct {
	Total    int
	Disposed int
	Failed   int
	Skipped  int
}

// Service clears the caches of journaled sessions that were never disposed
type Service struct {
	store store.SessionStore
	api   CacheClearer
}

// NewService creates a recovery service clearing caches through api
func NewService(st store.SessionStore, api CacheClearer) *Service {
	return &Service{store: st, api: api}
}

// DisposeOrphans clears every open journal record of the api's service.
// Records of other services are skipped. A cache the service no longer
// knows counts as disposed; a refusal marks the record failed.
func (s *Service) DisposeOrphans(ctx context.Context) (Result, error) {
	var res Result
	records, err := s.store.ListOpen()
	if err != nil {
		logger.Error("Failed to query open sessions for recovery", zap.Error(err))
		return res, err
	}
	res.Total = len(records)
	if len(records) == 0 {
		logger.Debug("No orphaned sessions to recover")
		return res, nil
	}

	logger.Info("Recovering orphaned sessions", zap.Int("count", len(records)))
	baseURL := s.api.BaseURL()

	for i := range records {
		record := &records[i]
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if record.ServiceURL != baseURL {
			res.Skipped++
			continue
		}

		if reason := s.dispose(ctx, record); reason != "" {
			res.Failed++
			logger.Warn("Orphaned session could not be cleared, marking as failed",
				zap.String(logger.FieldSessionID, record.ID),
				zap.String(logger.FieldCacheID, record.CacheID),
				zap.String("reason", reason),
			)
			if err := s.store.MarkFailed(record.ID, fmt.Sprintf("recovery failed: %s", reason)); err != nil {
				return res, err
			}
			continue
		}

		res.Disposed++
		if err := s.store.MarkDisposed(record.ID); err != nil {
			return res, err
		}
	}

	logger.Info("Session recovery completed",
		zap.Int("total", res.Total),
		zap.Int("disposed", res.Disposed),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// dispose clears the record's cache and returns a failure reason, "" on success
func (s *Service) dispose(ctx context.Context, record *model.SessionRecord) string {
	_, err := s.api.Clear(ctx, record.CacheID)
	switch {
	case err == nil:
		return ""
	case reportapi.IsNotFound(err):
		logger.Debug("Orphaned cache already expired",
			zap.String(logger.FieldSessionID, record.ID),
			zap.String(logger.FieldCacheID, record.CacheID),
		)
		return ""
	}
	return err.Error()
}
