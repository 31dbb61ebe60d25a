package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportviewer/internal/config"
	"github.com/verustcode/reportviewer/internal/mockservice"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

func mockClient(t *testing.T) (*mockservice.Service, *reportapi.Client) {
	t.Helper()
	svc, ts := mockservice.NewTestServer(t, config.MockConfig{})
	client, err := reportapi.New(ts.URL, reportapi.WithMetrics(&telemetry.Metrics{}))
	require.NoError(t, err)
	return svc, client
}

func TestReportSession_Lifecycle(t *testing.T) {
	svc, client := mockClient(t)
	ctx := context.Background()
	s := newSession(client, ReportSource{FilePath: "Reports/Sales.flxr", ReportName: "SalesByRegion", Paginated: true})
	rec := &changeRecorder{}
	s.Subscribe(rec.record)

	require.NoError(t, s.Load(ctx, nil))
	assert.True(t, s.HasParameters())
	assert.Equal(t, 1, svc.Executions())

	err := s.Render(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeService))
	assert.Equal(t, reportapi.StatusLoaded, s.Status())

	params, err := s.Parameters(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, params)
	assert.True(t, params[0].Required())

	params, err = s.SetParameters(ctx, []reportapi.ParameterValue{{Name: "region", Value: []any{"South"}}})
	require.NoError(t, err)
	assert.Empty(t, reportapi.ParameterErrors(params))

	require.NoError(t, s.Render(ctx))
	assert.Equal(t, reportapi.StatusCompleted, s.Status())

	hits, err := s.Search(ctx, reportapi.SearchOptions{Text: "South"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	err = s.Cancel(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))

	require.NoError(t, s.Dispose(ctx))
	assert.True(t, s.IsDisposed())
	assert.Equal(t, 0, svc.Executions())

	assert.Equal(t, []reportapi.ExecutionStatus{
		reportapi.StatusLoaded,
		reportapi.StatusCompleted,
		reportapi.StatusCleared,
	}, rec.statuses())
}

func TestReportSession_NoCacheNeverCallsService(t *testing.T) {
	svc, client := mockClient(t)
	s := newSession(client, inventory)

	assert.Error(t, s.Render(context.Background()))
	_, err := s.Outlines(context.Background())
	assert.Error(t, err)
	require.NoError(t, s.Dispose(context.Background()))
	assert.Zero(t, svc.RequestCount())
}

func TestReportSession_ExpiredCacheDispose(t *testing.T) {
	_, client := mockClient(t)
	ctx := context.Background()
	s := newSession(client, inventory)
	require.NoError(t, s.Load(ctx, nil))

	// Something else clears the cache first.
	_, err := client.Clear(ctx, s.CacheID())
	require.NoError(t, err)

	require.NoError(t, s.Dispose(ctx))
	assert.True(t, s.IsDisposed())
	assert.Equal(t, reportapi.StatusCleared, s.Status())
}
