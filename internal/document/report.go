package document

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/idgen"
	"github.com/verustcode/reportviewer/pkg/logger"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

// ReportSource identifies a report: a file in the catalog and, for
// FlexReport files, the report inside it
type ReportSource struct {
	FilePath   string
	ReportName string
	Paginated  bool
}

// String returns filePath or filePath/reportName
func (s ReportSource) String() string {
	if s.ReportName == "" {
		return s.FilePath
	}
	return s.FilePath + "/" + s.ReportName
}

// ReportSession is the Session variant for reports
type ReportSession struct {
	api    API
	source ReportSource
	id     string
	log    *zap.Logger
	h      *stateHolder
	m      *telemetry.Metrics
}

var _ Session = (*ReportSession)(nil)

// Option configures a ReportSession
type Option func(*ReportSession)

// WithMetrics overrides the metrics sink
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *ReportSession) { s.m = m }
}

// NewReportSession creates a session in status NotFound. Nothing is sent
// to the service until Load.
func NewReportSession(api API, source ReportSource, opts ...Option) *ReportSession {
	s := &ReportSession{
		api:    api,
		source: source,
		id:     idgen.NewSessionID(),
		m:      telemetry.GetMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.WithSession(s.id, "").With(zap.String(logger.FieldReport, source.String()))
	s.h = newStateHolder(s.id, s.m)
	return s
}

// ID returns the local session id
func (s *ReportSession) ID() string { return s.id }

// Source returns the report the session was created for
func (s *ReportSession) Source() ReportSource { return s.source }

// Describe implements Session
func (s *ReportSession) Describe() string { return s.source.String() }

// checkConfig validates the source before any network call
func (s *ReportSession) checkConfig() error {
	if s.api == nil || strings.TrimSpace(s.api.BaseURL()) == "" {
		return errors.ErrInvalidConfiguration("service url is required")
	}
	if strings.TrimSpace(s.source.FilePath) == "" {
		return errors.ErrInvalidConfiguration("file path is required")
	}
	if reportapi.IsFlexReport(s.source.FilePath) && strings.TrimSpace(s.source.ReportName) == "" {
		return errors.ErrInvalidConfiguration("report name is required for FlexReport file " + s.source.FilePath)
	}
	return nil
}

// requireCache returns the cache id or a NoActiveCache error
func (s *ReportSession) requireCache(operation string) (string, error) {
	st := s.h.snapshot()
	if st.cacheID == "" {
		return "", errors.ErrNoActiveCache(operation)
	}
	return st.cacheID, nil
}

// Load creates the server-side cache. A nil req loads with defaults;
// otherwise req is posted, e.g. to pass initial parameter values.
func (s *ReportSession) Load(ctx context.Context, req *reportapi.LoadRequest) error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	seq := s.h.begin()
	info, err := s.api.Load(ctx, s.source.FilePath, s.source.ReportName, s.source.Paginated, req)
	if err != nil {
		s.log.Warn("Failed to load report", zap.Error(err))
		return err
	}

	var replaced string
	applied := s.h.applyResponse(ctx, seq, "", func(st *state) {
		if st.cacheID != info.CacheID {
			replaced = st.cacheID
		}
		st.cacheID = info.CacheID
		st.params = nil
		st.disposed = false
		st.applyInfo(info)
	})
	if !applied {
		replaced = info.CacheID
	}
	if replaced != "" {
		s.release(ctx, replaced)
	}
	if applied {
		s.log.Info("Report loaded",
			zap.String(logger.FieldCacheID, info.CacheID),
			zap.String(logger.FieldStatus, string(info.Status)),
			zap.Bool("has_parameters", info.DocumentStatus.HasParameters),
		)
	}
	return nil
}

// release clears a cache the session no longer tracks
func (s *ReportSession) release(ctx context.Context, cacheID string) {
	if _, err := s.api.Clear(ctx, cacheID); err != nil {
		s.log.Warn("Failed to clear superseded cache",
			zap.String(logger.FieldCacheID, cacheID),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("Cleared superseded cache", zap.String(logger.FieldCacheID, cacheID))
}

// execute runs a cache-scoped call whose reply carries execution info
func (s *ReportSession) execute(ctx context.Context, operation string, call func(cacheID string) (*reportapi.ExecutionInfo, error)) (*reportapi.ExecutionInfo, error) {
	cacheID, err := s.requireCache(operation)
	if err != nil {
		return nil, err
	}
	seq := s.h.begin()
	info, err := call(cacheID)
	if err != nil {
		return nil, err
	}
	s.h.applyResponse(ctx, seq, cacheID, func(st *state) { st.applyInfo(info) })
	return info, nil
}

// Render starts or continues rendering
func (s *ReportSession) Render(ctx context.Context) error {
	_, err := s.execute(ctx, "render", func(id string) (*reportapi.ExecutionInfo, error) {
		return s.api.Render(ctx, id)
	})
	return err
}

// Cancel asks the service to stop rendering. It fails with InvalidState
// unless the session is Rendering.
func (s *ReportSession) Cancel(ctx context.Context) error {
	_, err := s.execute(ctx, "cancel", func(id string) (*reportapi.ExecutionInfo, error) {
		if st := s.h.snapshot(); st.status != reportapi.StatusRendering {
			return nil, errors.ErrInvalidState("cannot cancel when not rendering")
		}
		return s.api.Stop(ctx, id)
	})
	return err
}

// DocumentStatus peeks at the execution and refreshes the local status,
// parameter flag and page settings
func (s *ReportSession) DocumentStatus(ctx context.Context) (reportapi.DocumentStatus, error) {
	info, err := s.execute(ctx, "document status", func(id string) (*reportapi.ExecutionInfo, error) {
		return s.api.Status(ctx, id)
	})
	if err != nil {
		return reportapi.DocumentStatus{}, err
	}
	return info.DocumentStatus, nil
}

// Parameters returns the parameter list. Once a non-empty list has been
// fetched it is served from memory until SetParameters or Load replaces it.
func (s *ReportSession) Parameters(ctx context.Context) ([]reportapi.Parameter, error) {
	cacheID, err := s.requireCache("parameters")
	if err != nil {
		return nil, err
	}
	if st := s.h.snapshot(); len(st.params) > 0 {
		return st.params, nil
	}

	seq := s.h.begin()
	params, err := s.api.Parameters(ctx, cacheID)
	if err != nil {
		return nil, err
	}
	s.h.applyResponse(ctx, seq, cacheID, func(st *state) { st.params = cloneParams(params) })
	return params, nil
}

// SetParameters posts values and replaces the parameter cache with the
// reply. Invalid values come back as items carrying Error; they do not fail
// the call.
func (s *ReportSession) SetParameters(ctx context.Context, values []reportapi.ParameterValue) ([]reportapi.Parameter, error) {
	cacheID, err := s.requireCache("set parameters")
	if err != nil {
		return nil, err
	}

	seq := s.h.begin()
	params, err := s.api.SetParameters(ctx, cacheID, values)
	if err != nil {
		return nil, err
	}
	s.h.applyResponse(ctx, seq, cacheID, func(st *state) { st.params = cloneParams(params) })

	for _, p := range params {
		if p.Error != "" {
			s.m.RecordParameterErrors(ctx, string(p.DataType), 1)
		}
	}
	if errs := reportapi.ParameterErrors(params); len(errs) > 0 {
		s.log.Debug("Parameter values rejected", zap.Any("errors", errs))
	}
	return params, nil
}

// Dispose clears the server-side cache. Without a cache it does nothing.
// A cache the service no longer knows counts as cleared.
func (s *ReportSession) Dispose(ctx context.Context) error {
	cacheID := s.h.snapshot().cacheID
	if cacheID == "" {
		return nil
	}

	res, err := s.api.Clear(ctx, cacheID)
	if err != nil {
		if !reportapi.IsNotFound(err) {
			s.log.Warn("Failed to dispose report cache", zap.String(logger.FieldCacheID, cacheID), zap.Error(err))
			return err
		}
		res = &reportapi.ClearResult{IsCleared: true}
	}

	s.h.applyLocal(ctx, func(st *state) {
		if st.cacheID != cacheID {
			return
		}
		st.cacheID = ""
		st.params = nil
		st.disposed = true
		if res.IsCleared {
			st.setStatus(reportapi.StatusCleared)
		}
	})
	s.log.Info("Report cache disposed",
		zap.String(logger.FieldCacheID, cacheID),
		zap.Bool("is_cleared", res.IsCleared),
	)
	return nil
}

// IsDisposed reports whether the session was disposed locally or its cache
// is known to be cleared
func (s *ReportSession) IsDisposed() bool {
	st := s.h.snapshot()
	return st.disposed || (st.cacheID == "" && st.status == reportapi.StatusCleared)
}

// Snapshot implements Session
func (s *ReportSession) Snapshot() Snapshot {
	st := s.h.snapshot()
	return Snapshot{
		SessionID:      s.id,
		CacheID:        st.cacheID,
		Status:         st.status,
		DocumentStatus: st.docStatus,
		Disposed:       st.disposed,
	}
}

// Status returns the current execution status
func (s *ReportSession) Status() reportapi.ExecutionStatus {
	return s.h.snapshot().status
}

// CacheID returns the server cache id, empty without a cache
func (s *ReportSession) CacheID() string {
	return s.h.snapshot().cacheID
}

// HasParameters reports the parameter flag of the last document status
func (s *ReportSession) HasParameters() bool {
	return s.h.snapshot().docStatus.HasParameters
}

// Subscribe registers fn for status changes. fn runs on the goroutine that
// caused the change, outside the session lock.
func (s *ReportSession) Subscribe(fn func(StatusChange)) func() {
	return s.h.subscribe(fn)
}
