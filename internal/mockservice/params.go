package mockservice

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

// Validation messages placed in Parameter.Error
const (
	msgRequired       = "Value is required"
	msgInvalid        = "invalid parameter"
	msgNotAllowed     = "Value is not in the list of allowed values"
	msgExpectMultiple = "A list of values is expected"
)

var temporalLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// cloneParameters copies the definitions so executions never share state
func cloneParameters(params []reportapi.Parameter) []reportapi.Parameter {
	out := make([]reportapi.Parameter, len(params))
	copy(out, params)
	return out
}

// applyValues sets the posted values and recomputes every Error field.
// Unknown names are ignored. It reports whether all parameters are valid.
func applyValues(params []reportapi.Parameter, values []reportapi.ParameterValue) bool {
	for _, v := range values {
		for i := range params {
			if params[i].Name == v.Name {
				params[i].Value = v.Value
			}
		}
	}
	return validateAll(params)
}

func validateAll(params []reportapi.Parameter) bool {
	ok := true
	for i := range params {
		params[i].Error = validateParameter(&params[i])
		if params[i].Error != "" {
			ok = false
		}
	}
	return ok
}

// hasBlockingParameters reports whether rendering must wait for values
func hasBlockingParameters(params []reportapi.Parameter) bool {
	for i := range params {
		if params[i].Error != "" || params[i].Required() {
			return true
		}
	}
	return false
}

func validateParameter(p *reportapi.Parameter) string {
	if !p.HasValue() {
		if p.Nullable {
			return ""
		}
		return msgRequired
	}

	values := []any{p.Value}
	if p.MultiValue {
		list, ok := p.Value.([]any)
		if !ok {
			return msgExpectMultiple
		}
		values = list
	}

	for _, v := range values {
		if !validScalar(p.DataType, v) {
			return msgInvalid
		}
		if len(p.AllowedValues) > 0 && !allowed(p.AllowedValues, v) {
			return msgNotAllowed
		}
	}
	return ""
}

func validScalar(dt reportapi.DataType, v any) bool {
	switch dt {
	case reportapi.DataTypeBoolean:
		switch val := v.(type) {
		case bool:
			return true
		case string:
			_, err := strconv.ParseBool(val)
			return err == nil
		}
		return false
	case reportapi.DataTypeInteger:
		switch val := v.(type) {
		case float64:
			return val == math.Trunc(val)
		case string:
			_, err := strconv.ParseInt(val, 10, 64)
			return err == nil
		}
		return false
	case reportapi.DataTypeFloat:
		switch val := v.(type) {
		case float64:
			return true
		case string:
			_, err := strconv.ParseFloat(val, 64)
			return err == nil
		}
		return false
	case reportapi.DataTypeDateTime, reportapi.DataTypeDate, reportapi.DataTypeTime:
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, layout := range temporalLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
		return false
	default:
		_, ok := v.(string)
		return ok
	}
}

func allowed(list []reportapi.AllowedValue, v any) bool {
	want := fmt.Sprint(v)
	for _, a := range list {
		if fmt.Sprint(a.Value) == want {
			return true
		}
	}
	return false
}
