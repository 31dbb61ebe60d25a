// Package mockservice is an in-memory reporting service speaking the same
// REST API as the hosted one. It backs the tests and the "mock" command.
package mockservice

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/config"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/idgen"
	"github.com/verustcode/reportviewer/pkg/logger"
)

// execution is one cached report execution
type execution struct {
	id           string
	file         *fileDef
	report       *reportDef
	reportName   string
	params       []reportapi.Parameter
	status       reportapi.ExecutionStatus
	pageSettings reportapi.PageSettings
	renderStart  time.Time
	loadedAt     time.Time
}

// Service holds the catalog and the live executions
type Service struct {
	cfg   config.MockConfig
	files map[string]*fileDef
	tree  []reportapi.CatalogItem
	now   func() time.Time
	log   *zap.Logger

	mu         sync.Mutex
	executions map[string]*execution

	requests atomic.Int64
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the time source used for render progress
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a service preloaded with the demo catalog
func New(cfg config.MockConfig, opts ...Option) *Service {
	files := defaultFiles()
	s := &Service{
		cfg:        cfg,
		files:      make(map[string]*fileDef, len(files)),
		tree:       buildCatalog(files),
		now:        time.Now,
		log:        logger.Named("mockservice"),
		executions: make(map[string]*execution),
	}
	for _, f := range files {
		s.files[strings.ToLower(f.path)] = f
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestCount returns how many API requests the service has answered
func (s *Service) RequestCount() int64 {
	return s.requests.Load()
}

// Executions returns the number of live caches
func (s *Service) Executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.executions)
}

// resolve finds the report addressed by filePath and reportName
func (s *Service) resolve(filePath, reportName string) (*fileDef, *reportDef, error) {
	f, ok := s.files[strings.ToLower(strings.Trim(filePath, "/"))]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeNotFound, "report file not found: "+filePath)
	}
	if reportapi.IsFlexReport(f.path) && reportName == "" {
		return nil, nil, errors.ErrValidation("report name is required for " + f.path)
	}
	r, ok := f.reports[reportName]
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeNotFound, "report not found: "+reportName)
	}
	return f, r, nil
}

func (s *Service) load(filePath, reportName string, req *reportapi.LoadRequest) (*reportapi.ExecutionInfo, error) {
	f, r, err := s.resolve(filePath, reportName)
	if err != nil {
		return nil, err
	}

	exec := &execution{
		id:           idgen.NewID(),
		file:         f,
		report:       r,
		reportName:   reportName,
		params:       cloneParameters(r.parameters),
		status:       reportapi.StatusLoaded,
		pageSettings: defaultPageSettings(),
		loadedAt:     s.now().UTC(),
	}
	paginated := true
	if req != nil {
		if req.Paginated != nil {
			paginated = *req.Paginated
		}
		// Errors are only reported once values have been posted.
		if len(req.Parameters) > 0 {
			applyValues(exec.params, req.Parameters)
		}
	}
	exec.pageSettings.Paginated = paginated

	s.mu.Lock()
	s.executions[exec.id] = exec
	info := s.info(exec)
	s.mu.Unlock()

	s.log.Info("Report loaded",
		zap.String(logger.FieldCacheID, exec.id),
		zap.String(logger.FieldReport, f.path+"/"+reportName),
	)
	return info, nil
}

// lookup returns the execution and advances its render progress. Callers hold mu.
func (s *Service) lookup(id string) (*execution, error) {
	exec, ok := s.executions[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "report cache not found: "+id)
	}
	if exec.status == reportapi.StatusRendering && !s.now().Before(exec.renderStart.Add(s.cfg.RenderDelay)) {
		exec.status = reportapi.StatusCompleted
	}
	return exec, nil
}

func (s *Service) withExecution(id string, fn func(*execution) (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return fn(exec)
}

func (s *Service) status(id string) (any, error) {
	return s.withExecution(id, func(exec *execution) (any, error) {
		return s.info(exec), nil
	})
}

func (s *Service) render(id string) (any, error) {
	return s.withExecution(id, func(exec *execution) (any, error) {
		if exec.status == reportapi.StatusRendering || exec.status == reportapi.StatusCompleted {
			return s.info(exec), nil
		}
		if hasBlockingParameters(exec.params) {
			return nil, errors.ErrValidation("report parameters are missing or invalid")
		}
		s.startRender(exec)
		return s.info(exec), nil
	})
}

func (s *Service) stop(id string) (any, error) {
	return s.withExecution(id, func(exec *execution) (any, error) {
		if exec.status != reportapi.StatusRendering {
			return nil, errors.ErrInvalidState("cannot stop when not rendering")
		}
		exec.status = reportapi.StatusStopped
		return s.info(exec), nil
	})
}

func (s *Service) clear(id string) (*reportapi.ClearResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.executions[id]; !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "report cache not found: "+id)
	}
	delete(s.executions, id)
	s.log.Info("Report cache cleared", zap.String(logger.FieldCacheID, id))
	return &reportapi.ClearResult{IsCleared: true}, nil
}

func (s *Service) parameters(id string) (any, error) {
	return s.withExecution(id, func(exec *execution) (any, error) {
		return cloneParameters(exec.params), nil
	})
}

func (s *Service) setParameters(id string, values []reportapi.ParameterValue) (any, error) {
	return s.withExecution(id, func(exec *execution) (any, error) {
		applyValues(exec.params, values)
		exec.status = reportapi.StatusLoaded
		return cloneParameters(exec.params), nil
	})
}

func (s *Service) setPageSettings(id string, ps reportapi.PageSettings) (any, error) {
	return s.withExecution(id, func(exec *execution) (any, error) {
		exec.pageSettings = ps
		if exec.status.Finished() {
			s.startRender(exec)
		}
		return s.info(exec), nil
	})
}

func (s *Service) customAction(id string, action reportapi.CustomAction) (any, error) {
	return s.withExecution(id, func(exec *execution) (any, error) {
		switch action.Kind {
		case "drillthrough", "toggle", "sort":
		default:
			return nil, errors.ErrValidation("unsupported custom action: " + action.Kind)
		}
		if !exec.status.Finished() {
			return nil, errors.ErrInvalidState("document is not rendered")
		}
		s.startRender(exec)
		return s.info(exec), nil
	})
}

func (s *Service) startRender(exec *execution) {
	exec.status = reportapi.StatusRendering
	exec.renderStart = s.now()
	if s.cfg.RenderDelay <= 0 {
		exec.status = reportapi.StatusCompleted
	}
}

// requireRendered fails unless the execution has a finished document
func requireRendered(exec *execution) error {
	if !exec.status.Finished() {
		return errors.ErrInvalidState("document is not rendered")
	}
	return nil
}

// info builds the wire view of an execution. Callers hold mu.
func (s *Service) info(exec *execution) *reportapi.ExecutionInfo {
	ps := exec.pageSettings
	loadedAt := exec.loadedAt
	info := &reportapi.ExecutionInfo{
		CacheID:  exec.id,
		Status:   exec.status,
		LoadedAt: &loadedAt,
		DocumentStatus: reportapi.DocumentStatus{
			Status:        exec.status,
			HasParameters: len(exec.params) > 0,
			PageSettings:  &ps,
		},
	}
	switch exec.status {
	case reportapi.StatusCompleted, reportapi.StatusStopped:
		info.DocumentStatus.PageCount = pageCount(exec)
		info.DocumentStatus.Progress = 1
	case reportapi.StatusRendering:
		if s.cfg.RenderDelay > 0 {
			p := float64(s.now().Sub(exec.renderStart)) / float64(s.cfg.RenderDelay)
			info.DocumentStatus.Progress = min(p, 0.99)
		}
	}
	return info
}

func pageCount(exec *execution) int {
	if !exec.pageSettings.Paginated {
		return 1
	}
	return len(exec.report.pages)
}

func defaultPageSettings() reportapi.PageSettings {
	return reportapi.PageSettings{
		Paginated:    true,
		Width:        8.5,
		Height:       11,
		LeftMargin:   0.5,
		RightMargin:  0.5,
		TopMargin:    0.5,
		BottomMargin: 0.5,
	}
}
