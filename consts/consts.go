// Package consts defines cross-module constants used throughout the application.
package consts

import (
	"sync"
	"time"
)

// ServiceName is the application service name
const ServiceName = "reportviewer"

// Project information constants
const (
	// ProjectName is the display name of the project
	ProjectName = "ReportViewer"

	// ProjectURL is the repository URL
	ProjectURL = "https://github.com/verustcode/reportviewer"

	// UserAgent is sent with every request to the reporting service
	UserAgent = "ReportViewer-Client/1.0"
)

// HTTP header names shared by the client and the mock service
const (
	// HeaderRequestID carries the per-request correlation id
	HeaderRequestID = "X-Request-ID"
)

// Build information - set via ldflags during build or programmatically
var (
	// Version is the application version
	Version = "dev"

	// BuildTime is the build timestamp
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

var (
	startedAt   time.Time
	startedOnce sync.Once
)

// SetStartedAt records the process start time (can only be called once)
func SetStartedAt(t time.Time) {
	startedOnce.Do(func() {
		startedAt = t
	})
}

// GetStartedAt returns the process start time
func GetStartedAt() time.Time {
	return startedAt
}

// GetUptime returns the duration since the process started
func GetUptime() time.Duration {
	if startedAt.IsZero() {
		return 0
	}
	return time.Since(startedAt)
}
