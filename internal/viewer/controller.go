// Package viewer drives a document session on behalf of a presentation
// surface. All reactions run on the single event loop of Run, so the surface
// never sees two transitions interleave.
package viewer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/document"
	"github.com/verustcode/reportviewer/internal/parameter"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/logger"
)

// DefaultPollInterval is how often a rendering document is polled
const DefaultPollInterval = time.Second

// Surface is what the controller presents to. Calls are made from the Run
// goroutine only.
type Surface interface {
	// ShowStatus reflects the current session state
	ShowStatus(snap document.Snapshot)
	// ShowParameters displays the parameter panel; widget errors are set on the editor
	ShowParameters(editor *parameter.Editor)
	// HideParameters removes the parameter panel
	HideParameters()
	// Reset clears the rendered document before a new render
	Reset()
	// ShowError writes to the status area
	ShowError(err error)
}

// Controller binds one session at a time to a surface
type Controller struct {
	surface      Surface
	log          *zap.Logger
	pollInterval time.Duration
	editorOpts   []parameter.Option

	box      *mailbox
	finished chan struct{}
	runOnce  sync.Once

	// owned by the Run goroutine
	session     document.Session
	unsubscribe func()
	lastVersion uint64
	editor      *parameter.Editor
	ticker      *time.Ticker
}

// Option configures a Controller
type Option func(*Controller)

// WithPollInterval sets the status poll interval while rendering
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithEditorOptions passes options to every parameter editor the controller creates
func WithEditorOptions(opts ...parameter.Option) Option {
	return func(c *Controller) {
		c.editorOpts = append(c.editorOpts, opts...)
	}
}

// New creates a controller presenting to surface
func New(surface Surface, opts ...Option) *Controller {
	c := &Controller{
		surface:      surface,
		log:          logger.Named("viewer"),
		pollInterval: DefaultPollInterval,
		box:          newMailbox(),
		finished:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind makes s the controlled session, replacing the current one
func (c *Controller) Bind(s document.Session) {
	c.box.post(bindEvent{session: s})
}

// Open loads the bound session; req carries initial parameter values and may be nil
func (c *Controller) Open(req *reportapi.LoadRequest) {
	c.box.post(openEvent{req: req})
}

// Render asks for a (re)render of the bound session
func (c *Controller) Render() {
	c.box.post(renderEvent{})
}

// Cancel stops a render in progress
func (c *Controller) Cancel() {
	c.box.post(cancelEvent{})
}

// Close unsubscribes from the bound session, disposes it and stops Run.
// It waits until Run has processed the request or ctx is done.
func (c *Controller) Close(ctx context.Context) error {
	done := make(chan error, 1)
	c.box.post(closeEvent{done: done})
	select {
	case err := <-done:
		return err
	case <-c.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns
func (c *Controller) Done() <-chan struct{} {
	return c.finished
}

// Run processes events until Close is handled or ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	defer c.runOnce.Do(func() { close(c.finished) })
	defer c.stopPolling()

	c.log.Debug("Viewer loop started")
	for {
		select {
		case <-ctx.Done():
			c.detach()
			c.log.Debug("Viewer loop stopping", zap.Error(ctx.Err()))
			return ctx.Err()

		case <-c.box.notify:
			for _, ev := range c.box.drain() {
				if c.handle(ctx, ev) {
					return nil
				}
			}

		case <-c.tick():
			c.poll(ctx)
		}
	}
}

// handle dispatches one event and reports whether the loop should stop
func (c *Controller) handle(ctx context.Context, ev event) bool {
	switch e := ev.(type) {
	case bindEvent:
		c.bind(e.session)
	case openEvent:
		c.open(ctx, e.req)
	case statusEvent:
		c.onStatus(ctx, e.change)
	case commitEvent:
		c.commit(ctx, e.sessionID, e.values)
	case renderEvent:
		if c.requireSession() {
			c.render(ctx)
		}
	case cancelEvent:
		if c.requireSession() {
			if err := c.session.Cancel(ctx); err != nil {
				c.fail("cancel", err)
			}
		}
	case closeEvent:
		e.done <- c.close(ctx)
		return true
	}
	return false
}

func (c *Controller) bind(s document.Session) {
	c.detach()
	c.session = s
	c.lastVersion = 0
	if s == nil {
		return
	}

	c.unsubscribe = s.Subscribe(func(change document.StatusChange) {
		c.box.post(statusEvent{change: change})
	})
	c.log.Info("Session bound",
		zap.String("session_id", s.ID()),
		zap.String("document", s.Describe()),
	)
	c.surface.ShowStatus(s.Snapshot())
}

// detach drops the subscription and the editor of the current session
func (c *Controller) detach() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.closeEditor()
	c.stopPolling()
}

func (c *Controller) requireSession() bool {
	if c.session == nil {
		c.surface.ShowError(errors.ErrInvalidState("no document is bound"))
		return false
	}
	return true
}

func (c *Controller) open(ctx context.Context, req *reportapi.LoadRequest) {
	if !c.requireSession() {
		return
	}
	before := c.session.Snapshot().Status
	if err := c.session.Load(ctx, req); err != nil {
		c.fail("load", err)
		return
	}
	// Reloading a loaded document produces no status change to react to.
	if before == reportapi.StatusLoaded && c.session.Snapshot().Status == reportapi.StatusLoaded {
		c.onLoaded(ctx)
	}
}

func (c *Controller) onStatus(ctx context.Context, change document.StatusChange) {
	if c.session == nil || change.SessionID != c.session.ID() {
		return
	}
	if change.Version <= c.lastVersion {
		c.log.Debug("Dropping out of order status change",
			zap.Uint64("version", change.Version),
			zap.Uint64("last_version", c.lastVersion),
		)
		return
	}
	c.lastVersion = change.Version

	c.surface.ShowStatus(c.session.Snapshot())
	switch change.New {
	case reportapi.StatusLoaded:
		c.onLoaded(ctx)
	case reportapi.StatusRendering:
		c.startPolling()
	default:
		c.stopPolling()
	}
}

// onLoaded renders right away unless parameters need values first
func (c *Controller) onLoaded(ctx context.Context) {
	snap := c.session.Snapshot()
	if !snap.DocumentStatus.HasParameters {
		c.closeEditor()
		c.surface.HideParameters()
		c.render(ctx)
		return
	}

	params, err := c.session.Parameters(ctx)
	if err != nil {
		c.fail("parameters", err)
		return
	}
	c.showEditor(params)
	if blocking(params) {
		c.log.Debug("Waiting for parameter values", zap.String("session_id", c.session.ID()))
		return
	}
	c.render(ctx)
}

func (c *Controller) showEditor(params []reportapi.Parameter) {
	if c.editor != nil {
		c.editor.Refresh(params)
	} else {
		sessionID := c.session.ID()
		opts := append([]parameter.Option{
			parameter.OnCommit(func(values []reportapi.ParameterValue) {
				c.box.post(commitEvent{sessionID: sessionID, values: values})
			}),
		}, c.editorOpts...)
		c.editor = parameter.New(params, opts...)
	}
	c.surface.ShowParameters(c.editor)
}

func (c *Controller) closeEditor() {
	if c.editor != nil {
		c.editor.Close()
		c.editor = nil
	}
}

// commit pushes committed values to the service. Items reported back with
// an error keep the panel open; otherwise the document is re-rendered.
func (c *Controller) commit(ctx context.Context, sessionID string, values []reportapi.ParameterValue) {
	if c.session == nil || c.session.ID() != sessionID {
		return
	}
	params, err := c.session.SetParameters(ctx, values)
	if err != nil {
		c.fail("set parameters", err)
		return
	}

	if errs := reportapi.ParameterErrors(params); len(errs) > 0 {
		c.log.Info("Service rejected parameter values",
			zap.String("session_id", sessionID),
			zap.Any("errors", errs),
		)
		c.showEditor(params)
		return
	}
	if c.editor != nil {
		c.editor.Refresh(params)
	}
	c.surface.Reset()
	c.render(ctx)
}

func (c *Controller) render(ctx context.Context) {
	if err := c.session.Render(ctx); err != nil {
		c.fail("render", err)
	}
}

func (c *Controller) close(ctx context.Context) error {
	s := c.session
	c.detach()
	c.session = nil
	if s == nil {
		return nil
	}
	if err := s.Dispose(ctx); err != nil {
		c.log.Warn("Failed to dispose session", zap.String("session_id", s.ID()), zap.Error(err))
		return err
	}
	c.log.Info("Session closed", zap.String("session_id", s.ID()))
	return nil
}

func (c *Controller) startPolling() {
	if c.ticker == nil {
		c.ticker = time.NewTicker(c.pollInterval)
	}
}

func (c *Controller) stopPolling() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Controller) tick() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.C
}

func (c *Controller) poll(ctx context.Context) {
	if c.session == nil {
		c.stopPolling()
		return
	}
	if _, err := c.session.DocumentStatus(ctx); err != nil {
		c.stopPolling()
		c.fail("status", err)
	}
}

// fail reports err on the surface. There are no retries.
func (c *Controller) fail(op string, err error) {
	fields := []zap.Field{zap.String("operation", op), zap.Error(err)}
	if c.session != nil {
		fields = append(fields, zap.String("session_id", c.session.ID()))
	}
	c.log.Warn("Viewer operation failed", fields...)
	c.surface.ShowError(err)
}

// blocking reports whether rendering has to wait for parameter input
func blocking(params []reportapi.Parameter) bool {
	for i := range params {
		if params[i].Required() || params[i].Error != "" {
			return true
		}
	}
	return false
}
