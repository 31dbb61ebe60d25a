package parameter

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/pkg/errors"
)

// manualClock schedules timers that fire only when the test advances time
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and fires due timers in order
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

var salesParams = []reportapi.Parameter{
	{
		Name:       "region",
		DataType:   reportapi.DataTypeString,
		MultiValue: true,
		AllowedValues: []reportapi.AllowedValue{
			{Name: "North", Value: "North"},
			{Name: "South", Value: "South"},
			{Name: "East", Value: "East"},
		},
	},
	{Name: "age", DataType: reportapi.DataTypeInteger},
	{Name: "from", DataType: reportapi.DataTypeDateTime, Value: "2024-01-01T00:00:00Z"},
	{Name: "include", DataType: reportapi.DataTypeBoolean, Nullable: true},
	{Name: "currency", DataType: reportapi.DataTypeString, Hidden: true, Value: "USD"},
}

func newTestEditor(params []reportapi.Parameter, opts ...Option) (*Editor, *manualClock, *[]map[string]string) {
	clock := &manualClock{}
	var passes []map[string]string
	var mu sync.Mutex
	all := append([]Option{
		WithTimerFunc(clock.AfterFunc),
		OnValidate(func(errs map[string]string) {
			mu.Lock()
			passes = append(passes, errs)
			mu.Unlock()
		}),
	}, opts...)
	return New(params, all...), clock, &passes
}

func TestKindFor(t *testing.T) {
	allowed := []reportapi.AllowedValue{{Name: "a", Value: "a"}}
	tests := []struct {
		name string
		p    reportapi.Parameter
		want Kind
	}{
		{"single select", reportapi.Parameter{DataType: reportapi.DataTypeInteger, AllowedValues: allowed}, KindSingleSelect},
		{"multi select", reportapi.Parameter{DataType: reportapi.DataTypeString, MultiValue: true, AllowedValues: allowed}, KindMultiSelect},
		{"checkbox", reportapi.Parameter{DataType: reportapi.DataTypeBoolean}, KindCheckbox},
		{"tri-state", reportapi.Parameter{DataType: reportapi.DataTypeBoolean, Nullable: true}, KindTriState},
		{"datetime", reportapi.Parameter{DataType: reportapi.DataTypeDateTime}, KindDateTimePicker},
		{"date", reportapi.Parameter{DataType: reportapi.DataTypeDate}, KindDatePicker},
		{"time", reportapi.Parameter{DataType: reportapi.DataTypeTime}, KindTimePicker},
		{"multi date", reportapi.Parameter{DataType: reportapi.DataTypeDate, MultiValue: true}, KindTextArea},
		{"integer", reportapi.Parameter{DataType: reportapi.DataTypeInteger}, KindNumberInput},
		{"multi float", reportapi.Parameter{DataType: reportapi.DataTypeFloat, MultiValue: true}, KindTextArea},
		{"string", reportapi.Parameter{DataType: reportapi.DataTypeString}, KindTextInput},
		{"multi string", reportapi.Parameter{DataType: reportapi.DataTypeString, MultiValue: true}, KindTextArea},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFor(tt.p))
		})
	}
}

func TestEditor_HiddenParametersHaveNoWidget(t *testing.T) {
	e, _, _ := newTestEditor(salesParams)
	widgets := e.Widgets()
	require.Len(t, widgets, 4)
	for _, w := range widgets {
		assert.NotEqual(t, "currency", w.Parameter.Name)
	}

	values := e.Values()
	require.Len(t, values, 5)
	assert.Equal(t, reportapi.ParameterValue{Name: "currency", Value: "USD"}, values[4])
}

func TestEditor_RequiredIntegerReportsOneError(t *testing.T) {
	e, _, _ := newTestEditor([]reportapi.Parameter{
		{Name: "age", DataType: reportapi.DataTypeInteger, Nullable: false},
	})

	errs := e.Validate()
	assert.Equal(t, map[string]string{"age": ErrRequired}, errs)
}

func TestEditor_ParseRule(t *testing.T) {
	tests := []struct {
		name  string
		param reportapi.Parameter
		text  string
		want  string
	}{
		{"integer ok", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeInteger}, "42", ""},
		{"integer bad", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeInteger}, "4.2", ErrInvalidParameter},
		{"float ok", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeFloat}, "4.2", ""},
		{"float bad", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeFloat}, "four", ErrInvalidParameter},
		{"date bad", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeDate}, "yesterday", ErrInvalidParameter},
		{"date ok", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeDate}, "2024-02-29", ""},
		{"empty nullable is valid", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeInteger, Nullable: true}, "", ""},
		{"empty required is required only", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeInteger}, "", ErrRequired},
		{"string empty required", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeString}, "", ErrRequired},
		{"multi integer bad line", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeInteger, MultiValue: true}, "1\n\nx\n3", ErrInvalidParameter},
		{"multi integer blank lines", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeInteger, MultiValue: true}, "1\n\n  \n3", ""},
		{"multi only blank lines", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeInteger, MultiValue: true}, "\n\n", ErrRequired},
		{"multi date bad line", reportapi.Parameter{Name: "p", DataType: reportapi.DataTypeDateTime, MultiValue: true}, "2020-01-01 00:00:00\nnope", ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEditor([]reportapi.Parameter{tt.param})
			require.NoError(t, e.SetText("p", tt.text))
			errs := e.Validate()
			if tt.want == "" {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, map[string]string{"p": tt.want}, errs)
			}
		})
	}
}

func TestEditor_DebounceTrailing(t *testing.T) {
	e, clock, passes := newTestEditor(salesParams)

	for i := 0; i < 5; i++ {
		require.NoError(t, e.SetText("age", "4"+string(rune('0'+i))))
		clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, *passes, "no validation while edits keep coming")
	assert.Equal(t, 1, clock.pending())
	assert.True(t, e.ValidationPending())

	// 400ms after the last edit: still quiet period
	clock.Advance(399 * time.Millisecond)
	assert.Empty(t, *passes)

	clock.Advance(1 * time.Millisecond)
	require.Len(t, *passes, 1)
	assert.Equal(t, 0, clock.pending())
	assert.False(t, e.ValidationPending())

	clock.Advance(time.Second)
	assert.Len(t, *passes, 1)
}

func TestEditor_DebounceAcrossFields(t *testing.T) {
	e, clock, passes := newTestEditor(salesParams, WithValidationDelay(200*time.Millisecond))

	require.NoError(t, e.SetText("age", "1"))
	clock.Advance(150 * time.Millisecond)
	require.NoError(t, e.Toggle("region", 1))
	clock.Advance(150 * time.Millisecond)
	assert.Empty(t, *passes)

	clock.Advance(50 * time.Millisecond)
	assert.Len(t, *passes, 1)
}

func TestEditor_ValidateCancelsScheduledPass(t *testing.T) {
	e, clock, passes := newTestEditor(salesParams)
	require.NoError(t, e.SetText("age", "1"))

	e.Validate()
	assert.Len(t, *passes, 1)
	clock.Advance(time.Second)
	assert.Len(t, *passes, 1)
}

func TestEditor_SelectAll(t *testing.T) {
	e, _, _ := newTestEditor(salesParams)

	w, ok := e.Widget("region")
	require.True(t, ok)
	assert.True(t, w.SelectAll)
	assert.Equal(t, []string{SelectAllLabel, "North", "South", "East"}, w.Options())
	assert.Equal(t, []bool{false, false, false, false}, w.Checked)

	// checking every real item checks the synthetic one
	for i := 1; i <= 3; i++ {
		require.NoError(t, e.Toggle("region", i))
	}
	w, _ = e.Widget("region")
	assert.Equal(t, []bool{true, true, true, true}, w.Checked)

	// unchecking one item unchecks it
	require.NoError(t, e.Toggle("region", 2))
	w, _ = e.Widget("region")
	assert.Equal(t, []bool{false, true, false, true}, w.Checked)
	assert.Equal(t, []any{"North", "East"}, w.Value())

	// checking the synthetic item checks all, and it is never a value
	require.NoError(t, e.Toggle("region", 0))
	w, _ = e.Widget("region")
	assert.Equal(t, []bool{true, true, true, true}, w.Checked)
	assert.Equal(t, []any{"North", "South", "East"}, w.Value())

	require.NoError(t, e.Toggle("region", 0))
	w, _ = e.Widget("region")
	assert.Equal(t, []any{}, w.Value())
}

func TestEditor_NoSelectAllForSingleAllowedValue(t *testing.T) {
	e, _, _ := newTestEditor([]reportapi.Parameter{{
		Name:          "r",
		DataType:      reportapi.DataTypeString,
		MultiValue:    true,
		AllowedValues: []reportapi.AllowedValue{{Name: "Only", Value: "Only"}},
	}})
	w, _ := e.Widget("r")
	assert.False(t, w.SelectAll)
	assert.Equal(t, []string{"Only"}, w.Options())

	require.NoError(t, e.Toggle("r", 0))
	w, _ = e.Widget("r")
	assert.Equal(t, []any{"Only"}, w.Value())
}

func TestEditor_InitialMultiSelectState(t *testing.T) {
	params := []reportapi.Parameter{salesParams[0]}
	params[0].Value = []any{"North", "South", "East"}
	e, _, _ := newTestEditor(params)

	w, _ := e.Widget("region")
	assert.Equal(t, []bool{true, true, true, true}, w.Checked)
}

func TestEditor_WrongKindAndUnknown(t *testing.T) {
	e, _, _ := newTestEditor(salesParams)

	err := e.SetText("region", "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	err = e.Toggle("age", 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	err = e.Toggle("region", 9)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	err = e.SetText("nope", "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	err = e.SetText("currency", "EUR")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound), "hidden parameters are not editable")
}

func TestEditor_Booleans(t *testing.T) {
	e, _, _ := newTestEditor([]reportapi.Parameter{
		{Name: "flag", DataType: reportapi.DataTypeBoolean},
		{Name: "maybe", DataType: reportapi.DataTypeBoolean, Nullable: true},
	})

	flag, _ := e.Widget("flag")
	require.NotNil(t, flag.Bool)
	assert.False(t, *flag.Bool)
	maybe, _ := e.Widget("maybe")
	assert.Nil(t, maybe.Bool)

	assert.Error(t, e.SetBool("flag", nil))
	require.NoError(t, e.SetBool("maybe", nil))
	yes := true
	require.NoError(t, e.SetBool("flag", &yes))

	assert.Empty(t, e.Validate())
	assert.Equal(t, []reportapi.ParameterValue{
		{Name: "flag", Value: true},
		{Name: "maybe", Value: nil},
	}, e.Values())
}

func TestEditor_SingleSelect(t *testing.T) {
	e, _, _ := newTestEditor([]reportapi.Parameter{{
		Name:     "top",
		DataType: reportapi.DataTypeInteger,
		Value:    float64(10),
		AllowedValues: []reportapi.AllowedValue{
			{Name: "Top 5", Value: float64(5)},
			{Name: "Top 10", Value: float64(10)},
		},
	}})

	w, _ := e.Widget("top")
	assert.Equal(t, 1, w.Selected)
	assert.Equal(t, float64(10), w.Value())

	require.NoError(t, e.Select("top", -1))
	assert.Equal(t, map[string]string{"top": ErrRequired}, e.Validate())
	assert.Error(t, e.Select("top", 2))
}

func TestEditor_BlankNullableTextCommitsNil(t *testing.T) {
	e, _, _ := newTestEditor([]reportapi.Parameter{
		{Name: "note", DataType: reportapi.DataTypeString, Nullable: true, Value: "draft"},
		{Name: "title", DataType: reportapi.DataTypeString, Value: "Q1"},
	})

	require.NoError(t, e.SetText("note", "  "))
	w, _ := e.Widget("note")
	assert.Nil(t, w.Value())

	values, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, []reportapi.ParameterValue{
		{Name: "note", Value: nil},
		{Name: "title", Value: "Q1"},
	}, values)

	require.NoError(t, e.SetText("title", ""))
	_, err = e.Commit()
	require.Error(t, err)
	assert.Equal(t, map[string]string{"title": ErrRequired}, e.Errors())
}

func TestEditor_Commit(t *testing.T) {
	var committed []reportapi.ParameterValue
	e, _, _ := newTestEditor(salesParams, OnCommit(func(v []reportapi.ParameterValue) { committed = v }))

	_, err := e.Commit()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	appErr, _ := errors.AsAppError(err)
	assert.Equal(t, map[string]string{"region": ErrRequired, "age": ErrRequired}, appErr.Details)
	assert.Nil(t, committed)
	w, _ := e.Widget("age")
	assert.Equal(t, ErrRequired, w.Error)

	require.NoError(t, e.Toggle("region", 1))
	require.NoError(t, e.SetText("age", "33"))

	values, err := e.Commit()
	require.NoError(t, err)
	assert.Equal(t, values, committed)
	assert.Empty(t, e.Errors())
	w, _ = e.Widget("age")
	assert.Empty(t, w.Error)

	assert.Equal(t, []reportapi.ParameterValue{
		{Name: "region", Value: []any{"North"}},
		{Name: "age", Value: int64(33)},
		{Name: "from", Value: "2024-01-01T00:00:00Z"},
		{Name: "include", Value: nil},
		{Name: "currency", Value: "USD"},
	}, values)
}

func TestEditor_RefreshPreservesActiveWidget(t *testing.T) {
	e, _, _ := newTestEditor(salesParams)
	require.NoError(t, e.SetText("age", "3"))
	assert.Equal(t, "age", e.Active())

	before := e.Widgets()
	var activeID int
	oldIDs := map[int]bool{}
	for _, w := range before {
		oldIDs[w.ID] = true
		if w.Parameter.Name == "age" {
			activeID = w.ID
		}
	}

	refreshed := make([]reportapi.Parameter, len(salesParams))
	copy(refreshed, salesParams)
	refreshed[1].Value = float64(99)
	refreshed[0].Error = "Value is required"
	e.Refresh(refreshed)

	after := e.Widgets()
	require.Len(t, after, 4)
	last := after[len(after)-1]
	assert.Equal(t, "age", last.Parameter.Name, "rebuilt widgets go before the edited one")
	assert.Equal(t, activeID, last.ID)
	assert.Equal(t, "3", last.Text, "edited text survives the refresh")

	names := []string{}
	for _, w := range after[:3] {
		names = append(names, w.Parameter.Name)
		assert.False(t, oldIDs[w.ID], "widget %s must be rebuilt", w.Parameter.Name)
	}
	assert.Equal(t, []string{"region", "from", "include"}, names)

	assert.Equal(t, map[string]string{"region": "Value is required"}, e.Errors())
}

func TestEditor_RefreshWithoutActiveRebuildsAll(t *testing.T) {
	e, _, _ := newTestEditor(salesParams)
	e.Refresh(salesParams[:2])

	after := e.Widgets()
	require.Len(t, after, 2)
	assert.Equal(t, "region", after[0].Parameter.Name)
	assert.Equal(t, "age", after[1].Parameter.Name)
}

func TestEditor_RefreshDropsVanishedActive(t *testing.T) {
	e, _, _ := newTestEditor(salesParams)
	e.Focus("age")
	e.Refresh(salesParams[:1])

	assert.Empty(t, e.Active())
	assert.Len(t, e.Widgets(), 1)
}

func TestEditor_Close(t *testing.T) {
	e, clock, passes := newTestEditor(salesParams)
	require.NoError(t, e.SetText("age", "1"))
	e.Close()
	clock.Advance(time.Second)
	assert.Empty(t, *passes)
}

func TestEditor_FocusAndBlur(t *testing.T) {
	e, _, _ := newTestEditor(salesParams)
	e.Focus("missing")
	assert.Empty(t, e.Active())

	e.Focus("region")
	assert.Equal(t, "region", e.Active())

	e.Blur()
	assert.Empty(t, e.Active())
}
