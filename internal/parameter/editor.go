package parameter

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/logger"
)

// Validation messages
const (
	ErrRequired         = "value is required"
	ErrInvalidParameter = "invalid parameter"
)

// Editor holds the widgets of one parameter panel
type Editor struct {
	log        *zap.Logger
	delay      time.Duration
	newTimer   TimerFunc
	onValidate func(map[string]string)
	onCommit   func([]reportapi.ParameterValue)
	debounce   *debouncer

	mu      sync.Mutex
	params  []reportapi.Parameter
	widgets []*Widget
	byName  map[string]*Widget
	active  string
	errors  map[string]string
	nextID  int
}

// Option configures an Editor
type Option func(*Editor)

// WithValidationDelay overrides the debounce quiet period
func WithValidationDelay(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.delay = d
		}
	}
}

// WithTimerFunc replaces time.AfterFunc for scheduling validation
func WithTimerFunc(f TimerFunc) Option {
	return func(e *Editor) { e.newTimer = f }
}

// OnValidate registers the callback of every validation pass. It receives
// name → message for each failing parameter, empty when all pass.
func OnValidate(fn func(map[string]string)) Option {
	return func(e *Editor) { e.onValidate = fn }
}

// OnCommit registers the callback raised by a successful Commit
func OnCommit(fn func([]reportapi.ParameterValue)) Option {
	return func(e *Editor) { e.onCommit = fn }
}

// New creates an editor for params
func New(params []reportapi.Parameter, opts ...Option) *Editor {
	e := &Editor{
		log:    logger.Named("parameter"),
		delay:  DefaultValidationDelay,
		errors: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.debounce = newDebouncer(e.delay, e.newTimer, e.runValidation)

	e.mu.Lock()
	e.rebuild(params, nil)
	e.mu.Unlock()
	return e
}

// rebuild replaces the widget list. keep, when set, is reused as is and
// the new widgets are placed before it. Callers hold mu.
func (e *Editor) rebuild(params []reportapi.Parameter, keep *Widget) {
	e.params = append([]reportapi.Parameter(nil), params...)
	e.widgets = e.widgets[:0]
	e.byName = make(map[string]*Widget, len(params))
	e.errors = make(map[string]string)

	for _, p := range params {
		if p.Hidden {
			continue
		}
		if keep != nil && p.Name == keep.Parameter.Name {
			continue
		}
		e.nextID++
		w := newWidget(e.nextID, p)
		e.widgets = append(e.widgets, w)
		e.byName[p.Name] = w
	}
	if keep != nil {
		e.widgets = append(e.widgets, keep)
		e.byName[keep.Parameter.Name] = keep
	}

	for _, w := range e.widgets {
		if w.Error != "" {
			e.errors[w.Parameter.Name] = w.Error
		}
	}
}

// Refresh rebuilds the widgets from a new parameter list, typically the
// reply of a parameter update. The widget being edited survives unchanged
// when its parameter still exists with the same editor kind.
func (e *Editor) Refresh(params []reportapi.Parameter) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var keep *Widget
	if w, ok := e.byName[e.active]; ok {
		for _, p := range params {
			if p.Name == e.active && !p.Hidden && KindFor(p) == w.Kind {
				keep = w
				break
			}
		}
	}
	if keep == nil {
		e.active = ""
	}
	e.rebuild(params, keep)
	e.log.Debug("Parameter panel refreshed",
		zap.Int("widgets", len(e.widgets)),
		zap.String("active", e.active),
	)
}

// Widgets returns copies of the widgets in display order
func (e *Editor) Widgets() []Widget {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Widget, len(e.widgets))
	for i, w := range e.widgets {
		out[i] = w.clone()
	}
	return out
}

// Widget returns a copy of the widget for name
func (e *Editor) Widget(name string) (Widget, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.byName[name]
	if !ok {
		return Widget{}, false
	}
	return w.clone(), true
}

// Focus marks name as the parameter being edited
func (e *Editor) Focus(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byName[name]; ok {
		e.active = name
	}
}

// Blur clears the edited parameter
func (e *Editor) Blur() {
	e.mu.Lock()
	e.active = ""
	e.mu.Unlock()
}

// Active returns the parameter being edited, "" for none
func (e *Editor) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// edit applies fn to the named widget, focuses it and schedules validation
func (e *Editor) edit(name string, fn func(w *Widget) error) error {
	e.mu.Lock()
	w, ok := e.byName[name]
	if !ok {
		e.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "unknown parameter: "+name)
	}
	if err := fn(w); err != nil {
		e.mu.Unlock()
		return err
	}
	e.active = name
	e.mu.Unlock()

	e.debounce.Trigger()
	return nil
}

func wrongKind(w *Widget, op string) error {
	return errors.ErrValidation(fmt.Sprintf("parameter %s (%s) does not support %s", w.Parameter.Name, w.Kind, op))
}

// SetText replaces the text of a free-text widget
func (e *Editor) SetText(name, text string) error {
	return e.edit(name, func(w *Widget) error {
		if !w.Kind.IsFreeText() {
			return wrongKind(w, "text input")
		}
		w.Text = text
		return nil
	})
}

// SetBool sets a checkbox or tri-state; nil is only accepted by a tri-state
func (e *Editor) SetBool(name string, value *bool) error {
	return e.edit(name, func(w *Widget) error {
		if w.Kind != KindCheckbox && w.Kind != KindTriState {
			return wrongKind(w, "boolean input")
		}
		if value == nil && w.Kind == KindCheckbox {
			return errors.ErrValidation("a checkbox cannot be indeterminate")
		}
		if value == nil {
			w.Bool = nil
		} else {
			b := *value
			w.Bool = &b
		}
		return nil
	})
}

// Select picks an allowed value of a single select; -1 clears it
func (e *Editor) Select(name string, index int) error {
	return e.edit(name, func(w *Widget) error {
		if w.Kind != KindSingleSelect {
			return wrongKind(w, "single selection")
		}
		if index < -1 || index >= len(w.Parameter.AllowedValues) {
			return errors.ErrValidation(fmt.Sprintf("option %d out of range", index))
		}
		w.Selected = index
		return nil
	})
}

// Toggle flips an option of a multi-select. Index 0 is the synthetic
// "select all" item when the widget shows it.
func (e *Editor) Toggle(name string, index int) error {
	return e.edit(name, func(w *Widget) error {
		if w.Kind != KindMultiSelect {
			return wrongKind(w, "multiple selection")
		}
		if index < 0 || index >= len(w.Checked) {
			return errors.ErrValidation(fmt.Sprintf("option %d out of range", index))
		}
		w.Checked[index] = !w.Checked[index]
		if w.SelectAll {
			w.Checked = ReconcileSelectAll(w.Checked, index)
		}
		return nil
	})
}

// runValidation is the debounced validation pass
func (e *Editor) runValidation() {
	errs := e.validate()
	if e.onValidate != nil {
		e.onValidate(errs)
	}
}

// validate checks every widget and records the messages. Callers must not hold mu.
func (e *Editor) validate() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = make(map[string]string)
	for _, w := range e.widgets {
		w.Error = w.validate()
		if w.Error != "" {
			e.errors[w.Parameter.Name] = w.Error
		}
	}
	return copyErrors(e.errors)
}

// Validate runs a validation pass now and cancels a scheduled one
func (e *Editor) Validate() map[string]string {
	e.debounce.Cancel()
	errs := e.validate()
	if e.onValidate != nil {
		e.onValidate(errs)
	}
	return errs
}

// ValidationPending reports whether a debounced validation is scheduled
func (e *Editor) ValidationPending() bool {
	return e.debounce.Pending()
}

// Errors returns the messages of the last validation or refresh
func (e *Editor) Errors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyErrors(e.errors)
}

// Values returns the value of every parameter in definition order. Hidden
// parameters keep the value the service reported.
func (e *Editor) Values() []reportapi.ParameterValue {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values()
}

func (e *Editor) values() []reportapi.ParameterValue {
	out := make([]reportapi.ParameterValue, 0, len(e.params))
	for _, p := range e.params {
		if w, ok := e.byName[p.Name]; ok {
			out = append(out, reportapi.ParameterValue{Name: p.Name, Value: w.Value()})
			continue
		}
		out = append(out, reportapi.ParameterValue{Name: p.Name, Value: p.Value})
	}
	return out
}

// Commit validates and, when everything passes, clears the errors and
// raises the commit callback with all values. Otherwise it returns a
// Validation error whose details are the per-parameter messages.
func (e *Editor) Commit() ([]reportapi.ParameterValue, error) {
	errs := e.Validate()
	if len(errs) > 0 {
		e.log.Debug("Commit rejected", zap.Any("errors", errs))
		return nil, errors.ErrValidation("parameter values are invalid").WithDetails(errs)
	}

	e.mu.Lock()
	for _, w := range e.widgets {
		w.Error = ""
	}
	e.errors = make(map[string]string)
	values := e.values()
	e.mu.Unlock()

	e.log.Debug("Parameters committed", zap.Int("count", len(values)))
	if e.onCommit != nil {
		e.onCommit(values)
	}
	return values, nil
}

// Close cancels a scheduled validation
func (e *Editor) Close() {
	e.debounce.Cancel()
}

func copyErrors(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
