package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/verustcode/reportviewer/internal/parameter"
	"github.com/verustcode/reportviewer/internal/reportapi"
)

// Tri-state choices
const (
	triUnset = "(not set)"
	triTrue  = "true"
	triFalse = "false"
)

// binding holds the form value of one widget until it is applied
type binding struct {
	widget   parameter.Widget
	text     string
	selected int
	multi    []int
	tri      string
	check    bool
}

func newBinding(w parameter.Widget) *binding {
	b := &binding{widget: w, text: w.Text, selected: w.Selected, tri: triUnset}
	switch w.Kind {
	case parameter.KindMultiSelect:
		b.multi = parameter.SelectedIndexes(w.Checked, w.SelectAll)
	case parameter.KindCheckbox:
		b.check = w.Bool != nil && *w.Bool
	case parameter.KindTriState:
		if w.Bool != nil {
			b.tri = fmt.Sprint(*w.Bool)
		}
	}
	return b
}

func (b *binding) title() string {
	p := b.widget.Parameter
	title := p.Prompt
	if title == "" {
		title = p.Name
	}
	if !p.Nullable {
		title += " *"
	}
	return title
}

func (b *binding) description() string {
	if b.widget.Error != "" {
		return b.widget.Error
	}
	p := b.widget.Parameter
	switch b.widget.Kind {
	case parameter.KindTextArea:
		if p.DataType.IsTemporal() {
			return "one value per line, " + parameter.MultiValueDateFormat + " UTC"
		}
		return "one value per line"
	case parameter.KindDateTimePicker:
		return parameter.MultiValueDateFormat + " UTC"
	case parameter.KindDatePicker:
		return "YYYY-MM-DD"
	case parameter.KindTimePicker:
		return "HH:MM:SS"
	}
	return string(p.DataType)
}

// field builds the huh field for the widget
func (b *binding) field() huh.Field {
	w := b.widget
	switch w.Kind {
	case parameter.KindSingleSelect:
		options := []huh.Option[int]{huh.NewOption("(none)", -1)}
		for i, label := range w.Options() {
			options = append(options, huh.NewOption(label, i))
		}
		return huh.NewSelect[int]().
			Title(b.title()).
			Description(b.description()).
			Options(options...).
			Value(&b.selected)

	case parameter.KindMultiSelect:
		labels := w.Options()
		if w.SelectAll {
			labels = labels[1:]
		}
		options := make([]huh.Option[int], len(labels))
		for i, label := range labels {
			options[i] = huh.NewOption(label, i)
		}
		return huh.NewMultiSelect[int]().
			Title(b.title()).
			Description(b.description()).
			Options(options...).
			Value(&b.multi)

	case parameter.KindCheckbox:
		return huh.NewConfirm().
			Title(b.title()).
			Affirmative("Yes").
			Negative("No").
			Value(&b.check)

	case parameter.KindTriState:
		return huh.NewSelect[string]().
			Title(b.title()).
			Options(huh.NewOptions(triUnset, triTrue, triFalse)...).
			Value(&b.tri)

	case parameter.KindTextArea:
		return huh.NewText().
			Title(b.title()).
			Description(b.description()).
			Value(&b.text)
	}

	input := huh.NewInput().
		Title(b.title()).
		Description(b.description()).
		Value(&b.text)
	if w.Kind != parameter.KindTextInput {
		dt := w.Parameter.DataType
		input = input.Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			if _, err := parameter.ParseScalar(dt, s); err != nil {
				return fmt.Errorf("not a valid %s", strings.ToLower(string(dt)))
			}
			return nil
		})
	}
	return input
}

// apply pushes the form value into the editor
func (b *binding) apply(e *parameter.Editor) error {
	name := b.widget.Parameter.Name
	switch b.widget.Kind {
	case parameter.KindSingleSelect:
		return e.Select(name, b.selected)

	case parameter.KindMultiSelect:
		current, ok := e.Widget(name)
		if !ok {
			return nil
		}
		offset := 0
		if current.SelectAll {
			offset = 1
		}
		want := make(map[int]bool, len(b.multi))
		for _, i := range b.multi {
			want[i] = true
		}
		for i := range current.Parameter.AllowedValues {
			if current.Checked[i+offset] != want[i] {
				if err := e.Toggle(name, i+offset); err != nil {
					return err
				}
			}
		}
		return nil

	case parameter.KindCheckbox:
		v := b.check
		return e.SetBool(name, &v)

	case parameter.KindTriState:
		switch b.tri {
		case triTrue, triFalse:
			v := b.tri == triTrue
			return e.SetBool(name, &v)
		}
		return e.SetBool(name, nil)
	}
	return e.SetText(name, b.text)
}

// Form is a huh form bound to a parameter editor
type Form struct {
	editor   *parameter.Editor
	bindings []*binding
	form     *huh.Form
}

// NewForm builds a form with one field per visible parameter
func NewForm(editor *parameter.Editor) *Form {
	f := &Form{editor: editor}
	fields := make([]huh.Field, 0)
	for _, w := range editor.Widgets() {
		b := newBinding(w)
		f.bindings = append(f.bindings, b)
		fields = append(fields, b.field())
	}
	if len(fields) > 0 {
		f.form = huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCharm())
	}
	return f
}

// Apply copies the form values into the editor. The submitted form leaves
// no parameter in edit.
func (f *Form) Apply() error {
	for _, b := range f.bindings {
		if err := b.apply(f.editor); err != nil {
			return err
		}
	}
	f.editor.Blur()
	return nil
}

// Run shows the form, applies the answers and commits the editor. A
// validation failure is returned with the editor's per-field messages.
func (f *Form) Run(ctx context.Context) ([]reportapi.ParameterValue, error) {
	if f.form != nil {
		if err := f.form.RunWithContext(ctx); err != nil {
			return nil, err
		}
	}
	if err := f.Apply(); err != nil {
		return nil, err
	}
	return f.editor.Commit()
}
