package consts

import (
	"sync"
	"testing"
	"time"
)

func TestServiceName(t *testing.T) {
	if ServiceName != "reportviewer" {
		t.Errorf("ServiceName = %q, want %q", ServiceName, "reportviewer")
	}
}

func TestSetStartedAt(t *testing.T) {
	startedAt = time.Time{}
	startedOnce = sync.Once{}

	now := time.Now()
	SetStartedAt(now)

	if got := GetStartedAt(); !got.Equal(now) {
		t.Errorf("GetStartedAt() = %v, want %v", got, now)
	}

	// Only the first call takes effect
	SetStartedAt(now.Add(time.Hour))
	if got := GetStartedAt(); !got.Equal(now) {
		t.Errorf("GetStartedAt() after second set = %v, want %v", got, now)
	}
}

func TestGetUptime(t *testing.T) {
	startedAt = time.Time{}
	startedOnce = sync.Once{}

	if got := GetUptime(); got != 0 {
		t.Errorf("GetUptime() before start = %v, want 0", got)
	}

	SetStartedAt(time.Now().Add(-time.Minute))
	if got := GetUptime(); got < time.Minute {
		t.Errorf("GetUptime() = %v, want >= 1m", got)
	}
}
