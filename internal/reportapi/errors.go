package reportapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ServiceError is a non-2xx reply from the reporting service.
// Body holds the decoded JSON payload when the reply was JSON, Raw the text otherwise.
type ServiceError struct {
	Operation  string
	StatusCode int
	Body       any
	Raw        string
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s: service returned %d: %s", e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: service returned %d", e.Operation, e.StatusCode)
}

// Message extracts a human readable message from the reply
func (e *ServiceError) Message() string {
	if m, ok := e.Body.(map[string]any); ok {
		for _, key := range []string{"message", "Message", "error", "title"} {
			if s, ok := m[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := e.Body.(string); ok {
		return s
	}
	return strings.TrimSpace(e.Raw)
}

// newServiceError parses body as JSON when possible, else keeps it raw
func newServiceError(operation string, statusCode int, body []byte) *ServiceError {
	se := &ServiceError{Operation: operation, StatusCode: statusCode, Raw: string(body)}
	var decoded any
	if len(body) > 0 && json.Unmarshal(body, &decoded) == nil {
		se.Body = decoded
	}
	return se
}

// IsNotFound reports whether err is a 404 reply, e.g. for an expired cache
func IsNotFound(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether the service refused the credentials
func IsUnauthorized(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) &&
		(se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}
