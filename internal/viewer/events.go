package viewer

import (
	"sync"

	"github.com/verustcode/reportviewer/internal/document"
	"github.com/verustcode/reportviewer/internal/reportapi"
)

type event any

type bindEvent struct {
	session document.Session
}

type openEvent struct {
	req *reportapi.LoadRequest
}

type statusEvent struct {
	change document.StatusChange
}

type commitEvent struct {
	sessionID string
	values    []reportapi.ParameterValue
}

type renderEvent struct{}

type cancelEvent struct{}

type closeEvent struct {
	done chan error
}

// mailbox is an unbounded event queue. post never blocks, so session
// callbacks raised from inside the event loop cannot deadlock it.
type mailbox struct {
	mu     sync.Mutex
	queue  []event
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) post(ev event) {
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// drain takes every queued event in arrival order
func (m *mailbox) drain() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.queue
	m.queue = nil
	return out
}
