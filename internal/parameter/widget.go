package parameter

import (
	"fmt"
	"strings"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

// SelectAllLabel is the caption of the synthetic multi-select item
const SelectAllLabel = "(Select All)"

// Widget is the editing state of one visible parameter
type Widget struct {
	// ID identifies the widget instance; a widget kept across Refresh keeps its ID
	ID        int
	Parameter reportapi.Parameter
	Kind      Kind

	// Text is the typed text of free-text kinds
	Text string
	// Selected is the allowed-value index of a single select, -1 for none
	Selected int
	// Checked is the multi-select state; index 0 is the synthetic item when SelectAll is set
	Checked   []bool
	SelectAll bool
	// Bool is the checkbox or tri-state value; nil is the indeterminate state
	Bool *bool

	Error string
}

func newWidget(id int, p reportapi.Parameter) *Widget {
	w := &Widget{
		ID:        id,
		Parameter: p,
		Kind:      KindFor(p),
		Selected:  -1,
		Error:     p.Error,
	}

	switch w.Kind {
	case KindSingleSelect:
		w.Selected = allowedIndex(p.AllowedValues, p.Value)
	case KindMultiSelect:
		w.SelectAll = HasSelectAll(p)
		offset := 0
		if w.SelectAll {
			offset = 1
		}
		w.Checked = make([]bool, len(p.AllowedValues)+offset)
		for _, v := range asList(p.Value) {
			if i := allowedIndex(p.AllowedValues, v); i >= 0 {
				w.Checked[i+offset] = true
			}
		}
		if w.SelectAll {
			w.Checked = ReconcileSelectAll(w.Checked, 1)
		}
	case KindCheckbox, KindTriState:
		if b, ok := p.Value.(bool); ok {
			w.Bool = &b
		} else if w.Kind == KindCheckbox {
			// A checkbox has no indeterminate state.
			f := false
			w.Bool = &f
		}
	case KindTextArea:
		w.Text = FormatLines(p.DataType, p.Value)
	default:
		w.Text = FormatScalar(p.DataType, p.Value, displayLayout(p.DataType))
	}
	return w
}

// clone returns a copy that shares no mutable state with w
func (w *Widget) clone() Widget {
	c := *w
	if w.Checked != nil {
		c.Checked = append([]bool(nil), w.Checked...)
	}
	if w.Bool != nil {
		b := *w.Bool
		c.Bool = &b
	}
	return c
}

// Options returns the captions of a select, synthetic item first when present
func (w *Widget) Options() []string {
	var out []string
	if w.SelectAll {
		out = append(out, SelectAllLabel)
	}
	for _, a := range w.Parameter.AllowedValues {
		name := a.Name
		if name == "" {
			name = fmt.Sprint(a.Value)
		}
		out = append(out, name)
	}
	return out
}

// Value is the wire value the widget currently represents. Text that does
// not parse yields nil.
func (w *Widget) Value() any {
	p := w.Parameter
	switch w.Kind {
	case KindSingleSelect:
		if w.Selected >= 0 && w.Selected < len(p.AllowedValues) {
			return p.AllowedValues[w.Selected].Value
		}
		return nil
	case KindMultiSelect:
		values := []any{}
		for _, i := range SelectedIndexes(w.Checked, w.SelectAll) {
			if i < len(p.AllowedValues) {
				values = append(values, p.AllowedValues[i].Value)
			}
		}
		return values
	case KindCheckbox, KindTriState:
		if w.Bool == nil {
			return nil
		}
		return *w.Bool
	case KindTextArea:
		values, _ := ParseLines(p.DataType, w.Text)
		if values == nil {
			values = []any{}
		}
		return values
	case KindTextInput:
		if p.Nullable && strings.TrimSpace(w.Text) == "" {
			return nil
		}
		return w.Text
	default:
		if strings.TrimSpace(w.Text) == "" {
			return nil
		}
		v, err := ParseScalar(p.DataType, w.Text)
		if err != nil {
			return nil
		}
		return v
	}
}

// validate applies the parse rule and then the required rule, so a
// parameter gets at most one error
func (w *Widget) validate() string {
	p := w.Parameter
	typed := p.DataType.IsNumeric() || p.DataType.IsTemporal()

	switch w.Kind {
	case KindTextArea:
		if typed {
			if _, bad := ParseLines(p.DataType, w.Text); len(bad) > 0 {
				return ErrInvalidParameter
			}
		}
	case KindNumberInput, KindDateTimePicker, KindDatePicker, KindTimePicker:
		// Empty text is left to the required rule.
		if strings.TrimSpace(w.Text) != "" {
			if _, err := ParseScalar(p.DataType, w.Text); err != nil {
				return ErrInvalidParameter
			}
		}
	}

	if !p.Nullable && !reportapi.HasValue(w.Value()) {
		return ErrRequired
	}
	return ""
}

func allowedIndex(list []reportapi.AllowedValue, v any) int {
	if v == nil {
		return -1
	}
	want := fmt.Sprint(v)
	for i, a := range list {
		if fmt.Sprint(a.Value) == want {
			return i
		}
	}
	return -1
}

func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	}
	return []any{v}
}
