package document

import (
	"context"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

// SupportedFormats lists the export formats of the report. It needs a valid
// source but no cache.
func (s *ReportSession) SupportedFormats(ctx context.Context) ([]reportapi.ExportFormat, error) {
	if err := s.checkConfig(); err != nil {
		return nil, err
	}
	return s.api.SupportedFormats(ctx, s.source.FilePath, s.source.ReportName)
}

// Outlines returns the outline tree of the rendered document
func (s *ReportSession) Outlines(ctx context.Context) ([]reportapi.OutlineNode, error) {
	cacheID, err := s.requireCache("outlines")
	if err != nil {
		return nil, err
	}
	return s.api.Outlines(ctx, cacheID)
}

// Bookmark resolves a named bookmark
func (s *ReportSession) Bookmark(ctx context.Context, name string) (*reportapi.DocumentPosition, error) {
	cacheID, err := s.requireCache("bookmark")
	if err != nil {
		return nil, err
	}
	return s.api.Bookmark(ctx, cacheID, name)
}

// Search finds text in the rendered document
func (s *ReportSession) Search(ctx context.Context, opts reportapi.SearchOptions) ([]reportapi.SearchResult, error) {
	cacheID, err := s.requireCache("search")
	if err != nil {
		return nil, err
	}
	return s.api.Search(ctx, cacheID, opts)
}

// Export renders the document into another format
func (s *ReportSession) Export(ctx context.Context, opts reportapi.ExportOptions) (*reportapi.ExportResult, error) {
	cacheID, err := s.requireCache("export")
	if err != nil {
		return nil, err
	}
	return s.api.Export(ctx, cacheID, opts)
}

// SetPageSettings changes the page layout; the reply status is applied
func (s *ReportSession) SetPageSettings(ctx context.Context, settings reportapi.PageSettings) error {
	_, err := s.execute(ctx, "page settings", func(id string) (*reportapi.ExecutionInfo, error) {
		return s.api.SetPageSettings(ctx, id, settings)
	})
	return err
}

// CustomAction runs an interactive action such as a drill-through
func (s *ReportSession) CustomAction(ctx context.Context, action reportapi.CustomAction) error {
	_, err := s.execute(ctx, "custom action", func(id string) (*reportapi.ExecutionInfo, error) {
		return s.api.CustomAction(ctx, id, action)
	})
	return err
}
