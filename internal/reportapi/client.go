package reportapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/consts"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/idgen"
	"github.com/verustcode/reportviewer/pkg/logger"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

const (
	defaultTimeout = 60 * time.Second
	// maxErrorBody caps how much of an error reply is kept
	maxErrorBody = 64 << 10
)

// Client talks to one reporting service instance
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	acceptLanguage string
	metrics        *telemetry.Metrics
	log            *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (e.g. one carrying OAuth2 credentials)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAcceptLanguage sets the Accept-Language header sent with every request
func WithAcceptLanguage(value string) Option {
	return func(c *Client) { c.acceptLanguage = value }
}

// WithMetrics overrides the metrics sink
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the service rooted at serviceURL.
// An empty or relative url is an InvalidConfiguration error.
func New(serviceURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(serviceURL) == "" {
		return nil, errors.ErrInvalidConfiguration("service url is required")
	}
	u, err := url.Parse(strings.TrimRight(serviceURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ErrInvalidConfiguration(fmt.Sprintf("invalid service url %q", serviceURL))
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		metrics:    telemetry.GetMetrics(),
		log:        logger.Named("reportapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListCatalog lists the catalog below path (GET /reports/{path})
func (c *Client) ListCatalog(ctx context.Context, catalogPath string, recursive bool) ([]CatalogItem, error) {
	var query url.Values
	if recursive {
		query = url.Values{"recursive": {"true"}}
	}
	endpoint := joinPath("reports", catalogPath)
	if endpoint == "reports" {
		endpoint += "/"
	}
	var items []CatalogItem
	err := c.do(ctx, "catalog", "", http.MethodGet, endpoint, query, nil, &items)
	return items, err
}

// Load creates a server-side cache for the report. A nil req issues
// GET .../load, otherwise req is posted as the body.
func (c *Client) Load(ctx context.Context, filePath, reportName string, paginated bool, req *LoadRequest) (*ExecutionInfo, error) {
	endpoint := reportEndpoint(filePath, reportName, "load")
	var info ExecutionInfo
	var err error
	if req == nil {
		query := url.Values{"paginated": {strconv.FormatBool(paginated)}}
		err = c.do(ctx, "load", "", http.MethodGet, endpoint, query, nil, &info)
	} else {
		body := *req
		if body.Paginated == nil {
			body.Paginated = &paginated
		}
		err = c.do(ctx, "load", "", http.MethodPost, endpoint, nil, &body, &info)
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SupportedFormats lists the export formats of a report
func (c *Client) SupportedFormats(ctx context.Context, filePath, reportName string) ([]ExportFormat, error) {
	var formats []ExportFormat
	err := c.do(ctx, "supportedformats", "", http.MethodGet, reportEndpoint(filePath, reportName, "supportedformats"), nil, nil, &formats)
	return formats, err
}

// Status peeks at the execution without affecting rendering
func (c *Client) Status(ctx context.Context, cacheID string) (*ExecutionInfo, error) {
	return c.execution(ctx, "status", cacheID, http.MethodGet, "", nil)
}

// Render starts or continues rendering the cached execution
func (c *Client) Render(ctx context.Context, cacheID string) (*ExecutionInfo, error) {
	return c.execution(ctx, "render", cacheID, http.MethodGet, "render", nil)
}

// Stop asks the service to stop rendering
func (c *Client) Stop(ctx context.Context, cacheID string) (*ExecutionInfo, error) {
	return c.execution(ctx, "stop", cacheID, http.MethodGet, "stop", nil)
}

// CustomAction runs an interactive document action
func (c *Client) CustomAction(ctx context.Context, cacheID string, action CustomAction) (*ExecutionInfo, error) {
	return c.execution(ctx, "customaction", cacheID, http.MethodPost, "customaction", action)
}

// SetPageSettings changes the page layout and re-paginates
func (c *Client) SetPageSettings(ctx context.Context, cacheID string, settings PageSettings) (*ExecutionInfo, error) {
	return c.execution(ctx, "pagesettings", cacheID, http.MethodPost, "pagesettings", settings)
}

// Clear deletes the server-side cache
func (c *Client) Clear(ctx context.Context, cacheID string) (*ClearResult, error) {
	var result ClearResult
	if err := c.do(ctx, "clear", cacheID, http.MethodDelete, cacheEndpoint(cacheID, ""), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Parameters returns the parameter definitions and current values
func (c *Client) Parameters(ctx context.Context, cacheID string) ([]Parameter, error) {
	var params []Parameter
	err := c.do(ctx, "parameters", cacheID, http.MethodGet, cacheEndpoint(cacheID, "parameters"), nil, nil, &params)
	return params, err
}

// SetParameters posts new values. The reply lists every parameter; invalid
// ones carry an Error instead of failing the call.
func (c *Client) SetParameters(ctx context.Context, cacheID string, values []ParameterValue) ([]Parameter, error) {
	var params []Parameter
	err := c.do(ctx, "setparameters", cacheID, http.MethodPost, cacheEndpoint(cacheID, "parameters"), nil, values, &params)
	return params, err
}

// Outlines returns the document outline tree
func (c *Client) Outlines(ctx context.Context, cacheID string) ([]OutlineNode, error) {
	var nodes []OutlineNode
	err := c.do(ctx, "outlines", cacheID, http.MethodGet, cacheEndpoint(cacheID, "outlines"), nil, nil, &nodes)
	return nodes, err
}

// Bookmark resolves a named bookmark to a document position
func (c *Client) Bookmark(ctx context.Context, cacheID, name string) (*DocumentPosition, error) {
	var pos DocumentPosition
	query := url.Values{"name": {name}}
	if err := c.do(ctx, "bookmark", cacheID, http.MethodGet, cacheEndpoint(cacheID, "bookmark"), query, nil, &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// Search finds text in the rendered document
func (c *Client) Search(ctx context.Context, cacheID string, opts SearchOptions) ([]SearchResult, error) {
	query := url.Values{
		"text":      {opts.Text},
		"matchCase": {strconv.FormatBool(opts.MatchCase)},
		"wholeWord": {strconv.FormatBool(opts.WholeWord)},
	}
	var results []SearchResult
	err := c.do(ctx, "search", cacheID, http.MethodGet, cacheEndpoint(cacheID, "search"), query, nil, &results)
	return results, err
}

// Export renders the document into the requested format
func (c *Client) Export(ctx context.Context, cacheID string, opts ExportOptions) (*ExportResult, error) {
	query := url.Values{"format": {opts.Format}}
	if opts.FileName != "" {
		query.Set("exportFileName", opts.FileName)
	}
	for k, v := range opts.Options {
		query.Set(k, v)
	}

	resp, err := c.send(ctx, "export", cacheID, http.MethodGet, cacheEndpoint(cacheID, "export"), query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransport, "failed to read export stream", err)
	}

	result := &ExportResult{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		result.FileName = params["filename"]
	}
	return result, nil
}

func (c *Client) execution(ctx context.Context, op, cacheID, method, action string, body any) (*ExecutionInfo, error) {
	var info ExecutionInfo
	if err := c.do(ctx, op, cacheID, method, cacheEndpoint(cacheID, action), nil, body, &info); err != nil {
		return nil, err
	}
	if info.CacheID == "" {
		info.CacheID = cacheID
	}
	return &info, nil
}

// do sends a request and decodes a JSON reply into out
func (c *Client) do(ctx context.Context, op, cacheID, method, endpoint string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, op, cacheID, method, endpoint, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.Wrap(errors.ErrCodeServiceDecode, op+": invalid response body", err)
	}
	return nil
}

// send performs the HTTP exchange. Non-2xx replies become ServiceErrors;
// the caller owns the body of a successful response.
func (c *Client) send(ctx context.Context, op, cacheID, method, endpoint string, query url.Values, body any) (resp *http.Response, err error) {
	ctx, span := telemetry.StartSpan(ctx, "reportapi."+op, telemetry.WithServiceCallAttributes(op, cacheID))
	start := time.Now()
	statusCode := 0
	defer func() {
		c.metrics.RecordServiceRequest(ctx, op, statusCode, time.Since(start).Seconds())
		telemetry.EndSpan(span, err)
	}()

	target := strings.TrimRight(c.baseURL.String(), "/") + "/api/" + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, op+": failed to encode request", merr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, op+": failed to build request", err)
	}
	requestID := idgen.NewRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", consts.UserAgent)
	req.Header.Set(consts.HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	span.SetAttributes(telemetry.AttrRequestID.String(requestID))

	c.log.Debug("Calling reporting service",
		zap.String("operation", op),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.String(logger.FieldCacheID, cacheID),
		zap.String("request_id", requestID),
	)

	resp, err = c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransport, op+": request failed", err)
	}
	statusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := newServiceError(op, resp.StatusCode, raw)
		c.log.Warn("Reporting service returned an error",
			zap.String("operation", op),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", se.Message()),
			zap.String("request_id", requestID),
		)
		msg := se.Message()
		if msg == "" {
			msg = fmt.Sprintf("%s failed", op)
		}
		return nil, errors.Wrap(errors.ErrCodeService, msg, se).WithDetails(se.Body)
	}
	return resp, nil
}

// reportEndpoint builds report/{filePath}[/{reportName}]/{action}
func reportEndpoint(filePath, reportName, action string) string {
	p := joinPath("report", filePath)
	if reportName != "" {
		p += "/" + url.PathEscape(reportName)
	}
	return p + "/" + action
}

// cacheEndpoint builds reportcache/{cacheID}[/{action}]
func cacheEndpoint(cacheID, action string) string {
	p := "reportcache/" + url.PathEscape(cacheID)
	if action != "" {
		p += "/" + action
	}
	return p
}

// joinPath escapes every segment of rel and appends it to prefix
func joinPath(prefix, rel string) string {
	var segments []string
	for _, s := range strings.Split(strings.Trim(rel, "/"), "/") {
		if s != "" {
			segments = append(segments, url.PathEscape(s))
		}
	}
	if len(segments) == 0 {
		return prefix
	}
	return prefix + "/" + strings.Join(segments, "/")
}
