package parameter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

// MultiValueDateFormat is the line format of multi-value date/time text
// areas. Values are shown and read back in UTC.
const MultiValueDateFormat = "2006-01-02 15:04:05"

// Display layouts of the single-value pickers
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// parseLayouts are tried in order when reading typed dates
var parseLayouts = []string{
	MultiValueDateFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	dateLayout,
	timeLayout,
	"15:04",
}

// ParseTime reads a date/time value in any accepted layout. Values without
// a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// wireTime serialises t the way the service expects for dt
func wireTime(t time.Time, dt reportapi.DataType) string {
	switch dt {
	case reportapi.DataTypeDate:
		return t.UTC().Format(dateLayout)
	case reportapi.DataTypeTime:
		return t.UTC().Format(timeLayout)
	}
	return t.UTC().Format(time.RFC3339)
}

// displayLayout is the text layout of a single-value picker
func displayLayout(dt reportapi.DataType) string {
	switch dt {
	case reportapi.DataTypeDate:
		return dateLayout
	case reportapi.DataTypeTime:
		return timeLayout
	}
	return MultiValueDateFormat
}

// ParseScalar converts typed text into the wire value for dt
func ParseScalar(dt reportapi.DataType, text string) (any, error) {
	text = strings.TrimSpace(text)
	switch dt {
	case reportapi.DataTypeInteger:
		return strconv.ParseInt(text, 10, 64)
	case reportapi.DataTypeFloat:
		return strconv.ParseFloat(text, 64)
	case reportapi.DataTypeBoolean:
		return strconv.ParseBool(text)
	case reportapi.DataTypeDateTime, reportapi.DataTypeDate, reportapi.DataTypeTime:
		t, err := ParseTime(text)
		if err != nil {
			return nil, err
		}
		return wireTime(t, dt), nil
	}
	return text, nil
}

// FormatScalar renders a wire value as editable text. Dates use layout.
func FormatScalar(dt reportapi.DataType, v any, layout string) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if dt.IsTemporal() {
			if t, err := ParseTime(val); err == nil {
				return t.Format(layout)
			}
		}
		return val
	case time.Time:
		return val.UTC().Format(layout)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return fmt.Sprint(v)
}

// FormatLines renders a multi-value as one value per line
func FormatLines(dt reportapi.DataType, v any) string {
	var values []any
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		values = val
	case []string:
		for _, s := range val {
			values = append(values, s)
		}
	default:
		values = []any{val}
	}

	lines := make([]string, 0, len(values))
	for _, item := range values {
		lines = append(lines, FormatScalar(dt, item, MultiValueDateFormat))
	}
	return strings.Join(lines, "\n")
}

// ParseLines reads a text area. Blank lines are skipped; the line numbers
// (1-based) that do not parse are returned in bad.
func ParseLines(dt reportapi.DataType, text string) (values []any, bad []int) {
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := ParseScalar(dt, line)
		if err != nil {
			bad = append(bad, i+1)
			continue
		}
		values = append(values, v)
	}
	return values, bad
}
