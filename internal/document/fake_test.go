package document

import (
	"context"
	"net/http"
	"sync"

	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
)

// fakeAPI records calls and answers from overridable hooks
type fakeAPI struct {
	baseURL string

	mu      sync.Mutex
	calls   map[string]int
	cleared []string

	loadFn    func(ctx context.Context, req *reportapi.LoadRequest) (*reportapi.ExecutionInfo, error)
	renderFn  func(ctx context.Context, id string) (*reportapi.ExecutionInfo, error)
	statusFn  func(ctx context.Context, id string) (*reportapi.ExecutionInfo, error)
	stopFn    func(ctx context.Context, id string) (*reportapi.ExecutionInfo, error)
	clearFn   func(ctx context.Context, id string) (*reportapi.ClearResult, error)
	paramsFn  func(ctx context.Context, id string) ([]reportapi.Parameter, error)
	setParams func(ctx context.Context, id string, values []reportapi.ParameterValue) ([]reportapi.Parameter, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{baseURL: "http://reports.test", calls: make(map[string]int)}
}

func (f *fakeAPI) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) clearedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleared...)
}

func info(id string, status reportapi.ExecutionStatus, hasParams bool) *reportapi.ExecutionInfo {
	return &reportapi.ExecutionInfo{
		CacheID: id,
		Status:  status,
		DocumentStatus: reportapi.DocumentStatus{
			Status:        status,
			HasParameters: hasParams,
		},
	}
}

func (f *fakeAPI) BaseURL() string { return f.baseURL }

func (f *fakeAPI) Load(ctx context.Context, _, _ string, _ bool, req *reportapi.LoadRequest) (*reportapi.ExecutionInfo, error) {
	f.record("load")
	if f.loadFn != nil {
		return f.loadFn(ctx, req)
	}
	return info("abc", reportapi.StatusLoaded, false), nil
}

func (f *fakeAPI) SupportedFormats(context.Context, string, string) ([]reportapi.ExportFormat, error) {
	f.record("supportedformats")
	return []reportapi.ExportFormat{{Format: "pdf", Name: "PDF", Extension: "pdf"}}, nil
}

func (f *fakeAPI) Status(ctx context.Context, id string) (*reportapi.ExecutionInfo, error) {
	f.record("status")
	if f.statusFn != nil {
		return f.statusFn(ctx, id)
	}
	return info(id, reportapi.StatusLoaded, false), nil
}

func (f *fakeAPI) Render(ctx context.Context, id string) (*reportapi.ExecutionInfo, error) {
	f.record("render")
	if f.renderFn != nil {
		return f.renderFn(ctx, id)
	}
	return info(id, reportapi.StatusCompleted, false), nil
}

func (f *fakeAPI) Stop(ctx context.Context, id string) (*reportapi.ExecutionInfo, error) {
	f.record("stop")
	if f.stopFn != nil {
		return f.stopFn(ctx, id)
	}
	return info(id, reportapi.StatusStopped, false), nil
}

func (f *fakeAPI) CustomAction(_ context.Context, id string, _ reportapi.CustomAction) (*reportapi.ExecutionInfo, error) {
	f.record("customaction")
	return info(id, reportapi.StatusRendering, false), nil
}

func (f *fakeAPI) SetPageSettings(_ context.Context, id string, _ reportapi.PageSettings) (*reportapi.ExecutionInfo, error) {
	f.record("pagesettings")
	return info(id, reportapi.StatusRendering, false), nil
}

func (f *fakeAPI) Clear(ctx context.Context, id string) (*reportapi.ClearResult, error) {
	f.record("clear")
	f.mu.Lock()
	f.cleared = append(f.cleared, id)
	f.mu.Unlock()
	if f.clearFn != nil {
		return f.clearFn(ctx, id)
	}
	return &reportapi.ClearResult{IsCleared: true}, nil
}

func (f *fakeAPI) Parameters(ctx context.Context, id string) ([]reportapi.Parameter, error) {
	f.record("parameters")
	if f.paramsFn != nil {
		return f.paramsFn(ctx, id)
	}
	return []reportapi.Parameter{{Name: "age", DataType: reportapi.DataTypeInteger}}, nil
}

func (f *fakeAPI) SetParameters(ctx context.Context, id string, values []reportapi.ParameterValue) ([]reportapi.Parameter, error) {
	f.record("setparameters")
	if f.setParams != nil {
		return f.setParams(ctx, id, values)
	}
	out := make([]reportapi.Parameter, 0, len(values))
	for _, v := range values {
		out = append(out, reportapi.Parameter{Name: v.Name, DataType: reportapi.DataTypeInteger, Value: v.Value})
	}
	return out, nil
}

func (f *fakeAPI) Outlines(context.Context, string) ([]reportapi.OutlineNode, error) {
	f.record("outlines")
	return []reportapi.OutlineNode{{Caption: "Top"}}, nil
}

func (f *fakeAPI) Bookmark(context.Context, string, string) (*reportapi.DocumentPosition, error) {
	f.record("bookmark")
	return &reportapi.DocumentPosition{PageIndex: 1}, nil
}

func (f *fakeAPI) Search(context.Context, string, reportapi.SearchOptions) ([]reportapi.SearchResult, error) {
	f.record("search")
	return nil, nil
}

func (f *fakeAPI) Export(context.Context, string, reportapi.ExportOptions) (*reportapi.ExportResult, error) {
	f.record("export")
	return &reportapi.ExportResult{Data: []byte("x")}, nil
}

// notFound mimics the client error for a 404 reply
func notFound(op string) error {
	se := &reportapi.ServiceError{Operation: op, StatusCode: http.StatusNotFound}
	return errors.Wrap(errors.ErrCodeService, "report cache not found", se)
}
