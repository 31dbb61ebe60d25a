// Package document tracks one server-side cached report execution.
//
// A session moves NotFound → Loaded → Rendering → Completed|Stopped, and any
// state may move to Cleared. Every status change funnels through a single
// transition function; subscribers are notified once per distinct value,
// outside the session lock. Responses are sequenced: a reply to a request
// issued before the last applied one is discarded.
package document

import (
	"context"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

// API is the part of the reporting service client a session uses.
// *reportapi.Client satisfies it.
type API interface {
	BaseURL() string
	Load(ctx context.Context, filePath, reportName string, paginated bool, req *reportapi.LoadRequest) (*reportapi.ExecutionInfo, error)
	SupportedFormats(ctx context.Context, filePath, reportName string) ([]reportapi.ExportFormat, error)
	Status(ctx context.Context, cacheID string) (*reportapi.ExecutionInfo, error)
	Render(ctx context.Context, cacheID string) (*reportapi.ExecutionInfo, error)
	Stop(ctx context.Context, cacheID string) (*reportapi.ExecutionInfo, error)
	CustomAction(ctx context.Context, cacheID string, action reportapi.CustomAction) (*reportapi.ExecutionInfo, error)
	SetPageSettings(ctx context.Context, cacheID string, settings reportapi.PageSettings) (*reportapi.ExecutionInfo, error)
	Clear(ctx context.Context, cacheID string) (*reportapi.ClearResult, error)
	Parameters(ctx context.Context, cacheID string) ([]reportapi.Parameter, error)
	SetParameters(ctx context.Context, cacheID string, values []reportapi.ParameterValue) ([]reportapi.Parameter, error)
	Outlines(ctx context.Context, cacheID string) ([]reportapi.OutlineNode, error)
	Bookmark(ctx context.Context, cacheID, name string) (*reportapi.DocumentPosition, error)
	Search(ctx context.Context, cacheID string, opts reportapi.SearchOptions) ([]reportapi.SearchResult, error)
	Export(ctx context.Context, cacheID string, opts reportapi.ExportOptions) (*reportapi.ExportResult, error)
}

// Session is the capability set every document kind offers
type Session interface {
	// ID is the local session identifier
	ID() string
	// Describe names the loaded document for logs and status lines
	Describe() string

	Load(ctx context.Context, req *reportapi.LoadRequest) error
	Render(ctx context.Context) error
	Cancel(ctx context.Context) error
	DocumentStatus(ctx context.Context) (reportapi.DocumentStatus, error)
	Parameters(ctx context.Context) ([]reportapi.Parameter, error)
	SetParameters(ctx context.Context, values []reportapi.ParameterValue) ([]reportapi.Parameter, error)
	Dispose(ctx context.Context) error

	Snapshot() Snapshot
	IsDisposed() bool
	Subscribe(fn func(StatusChange)) (unsubscribe func())
}

// StatusChange is delivered to subscribers when the status changes.
// Version increases with every change of the session, so a consumer can drop
// changes that arrive out of order.
type StatusChange struct {
	SessionID string
	CacheID   string
	Old       reportapi.ExecutionStatus
	New       reportapi.ExecutionStatus
	Version   uint64
}

// Snapshot is a consistent copy of the session state
type Snapshot struct {
	SessionID      string
	CacheID        string
	Status         reportapi.ExecutionStatus
	DocumentStatus reportapi.DocumentStatus
	Disposed       bool
}

// HasCache reports whether cache-scoped operations are possible
func (s Snapshot) HasCache() bool {
	return s.CacheID != ""
}
