// Package parameter is a headless parameter editor. It picks an editor kind
// per parameter, keeps the widget state, validates with a trailing debounce
// and produces the value set committed to a document session.
package parameter

import "github.com/verustcode/reportviewer/internal/reportapi"

// Kind is the editor used for a parameter
type Kind string

const (
	KindSingleSelect   Kind = "single-select"
	KindMultiSelect    Kind = "multi-select"
	KindTriState       Kind = "tri-state"
	KindCheckbox       Kind = "checkbox"
	KindDateTimePicker Kind = "datetime-picker"
	KindDatePicker     Kind = "date-picker"
	KindTimePicker     Kind = "time-picker"
	KindNumberInput    Kind = "number"
	KindTextInput      Kind = "text"
	KindTextArea       Kind = "text-area"
)

// KindFor selects the editor for p. Allowed values win over the data type;
// multi-value free-text parameters are edited one value per line.
func KindFor(p reportapi.Parameter) Kind {
	if len(p.AllowedValues) > 0 {
		if p.MultiValue {
			return KindMultiSelect
		}
		return KindSingleSelect
	}

	switch p.DataType {
	case reportapi.DataTypeBoolean:
		if p.Nullable {
			return KindTriState
		}
		return KindCheckbox
	case reportapi.DataTypeDateTime, reportapi.DataTypeDate, reportapi.DataTypeTime:
		if p.MultiValue {
			return KindTextArea
		}
		switch p.DataType {
		case reportapi.DataTypeDate:
			return KindDatePicker
		case reportapi.DataTypeTime:
			return KindTimePicker
		}
		return KindDateTimePicker
	case reportapi.DataTypeInteger, reportapi.DataTypeFloat:
		if p.MultiValue {
			return KindTextArea
		}
		return KindNumberInput
	default:
		if p.MultiValue {
			return KindTextArea
		}
		return KindTextInput
	}
}

// IsFreeText reports whether the kind is edited as typed text
func (k Kind) IsFreeText() bool {
	switch k {
	case KindDateTimePicker, KindDatePicker, KindTimePicker, KindNumberInput, KindTextInput, KindTextArea:
		return true
	}
	return false
}

// HasSelectAll reports whether a multi-select shows the synthetic
// "select all" item: only with more than one allowed value
func HasSelectAll(p reportapi.Parameter) bool {
	return p.MultiValue && len(p.AllowedValues) > 1
}
