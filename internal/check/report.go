package check

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Status is the outcome of one check
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// Item is one checked component
type Item struct {
	Name   string
	Status Status
	Detail string
}

// Report collects check results for display
type Report struct {
	Items       []Item
	Suggestions []string
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{
		Items:       make([]Item, 0),
		Suggestions: make([]string, 0),
	}
}

// Add records a check result
func (r *Report) Add(item Item) {
	r.Items = append(r.Items, item)
}

// Suggest records a tip for fixing an issue
func (r *Report) Suggest(s string) {
	r.Suggestions = append(r.Suggestions, s)
}

// Success reports whether no check failed
func (r *Report) Success() bool {
	for _, item := range r.Items {
		if item.Status == StatusFailed {
			return false
		}
	}
	return true
}

// Summary counts items per status
func (r *Report) Summary() map[Status]int {
	out := make(map[Status]int)
	for _, item := range r.Items {
		out[item.Status]++
	}
	return out
}

// Print writes every item followed by the summary line
func (r *Report) Print(w io.Writer) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	for _, item := range r.Items {
		switch item.Status {
		case StatusOK:
			green.Fprint(w, "  ✓ ")
		case StatusWarning:
			yellow.Fprint(w, "  ⚠ ")
		default:
			red.Fprint(w, "  ✗ ")
		}
		fmt.Fprintf(w, "%-8s %s\n", item.Name, item.Detail)
	}
	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "    → %s\n", s)
	}

	fmt.Fprintln(w, separatorStyle.Render(strings.Repeat("─", 50)))

	summary := r.Summary()
	switch {
	case summary[StatusFailed] > 0:
		red.Fprint(w, "✗ Check completed")
		fmt.Fprintf(w, " (%d failed, %d warning(s))\n", summary[StatusFailed], summary[StatusWarning])
	case summary[StatusWarning] > 0:
		yellow.Fprint(w, "⚠ Check completed")
		fmt.Fprintf(w, " (%d warning(s))\n", summary[StatusWarning])
	default:
		green.Fprint(w, "✓ Check completed")
		fmt.Fprintln(w, " - All checks passed")
	}
}

// ensureDir creates the parent directory of path
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
