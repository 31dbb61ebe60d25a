package tui

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/verustcode/reportviewer/internal/document"
	"github.com/verustcode/reportviewer/internal/parameter"
)

// Terminal writes the viewer state to a terminal. Parameter panels are
// handed to the goroutine reading Prompts, which runs the interactive form.
type Terminal struct {
	mu         sync.Mutex
	out        io.Writer
	prompts    chan *parameter.Editor
	finished   chan document.Snapshot
	errs       chan error
	lastStatus string
}

// NewTerminal creates a surface writing to out
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:      out,
		prompts:  make(chan *parameter.Editor, 1),
		finished: make(chan document.Snapshot, 1),
		errs:     make(chan error, 1),
	}
}

// Prompts delivers the editor whenever parameter input is wanted
func (t *Terminal) Prompts() <-chan *parameter.Editor {
	return t.prompts
}

// Finished delivers the snapshot of every Completed or Stopped document
func (t *Terminal) Finished() <-chan document.Snapshot {
	return t.finished
}

// Errors delivers the most recent error shown
func (t *Terminal) Errors() <-chan error {
	return t.errs
}

// ShowStatus prints one line per status change
func (t *Terminal) ShowStatus(snap document.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := snap.SessionID + "/" + string(snap.Status)
	if key == t.lastStatus {
		return
	}
	t.lastStatus = key

	line := StatusBadge(snap.Status)
	if snap.CacheID != "" {
		line += mutedStyle.Render("  cache " + snap.CacheID)
	}
	if snap.Status.Finished() && snap.DocumentStatus.PageCount > 0 {
		line += fmt.Sprintf("  %d page(s)", snap.DocumentStatus.PageCount)
	}
	fmt.Fprintln(t.out, line)

	if snap.Status.Finished() {
		replace(t.finished, snap)
	}
}

// ShowParameters prints the current errors and asks for input
func (t *Terminal) ShowParameters(editor *parameter.Editor) {
	t.mu.Lock()
	errs := editor.Errors()
	if len(errs) > 0 {
		names := make([]string, 0, len(errs))
		for name := range errs {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(t.out, Section("Parameters need attention"))
		for _, name := range names {
			fmt.Fprintf(t.out, "  %s: %s\n", name, errs[name])
		}
	}
	t.mu.Unlock()

	replace(t.prompts, editor)
}

// HideParameters is a no-op; forms close when submitted
func (t *Terminal) HideParameters() {}

// Reset prints a separator before the next render
func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, Separator())
}

// ShowError prints err
func (t *Terminal) ShowError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	PrintError(t.out, err)
	replace(t.errs, err)
}

// replace puts v into a one-slot channel, dropping an unread older value
func replace[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
