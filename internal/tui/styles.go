// Package tui is the terminal front end of the viewer: a status surface for
// the viewer controller, huh forms for parameter entry and plain printers
// for catalog and export listings.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/verustcode/reportviewer/internal/reportapi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Title renders a heading
func Title(text string) string {
	return titleStyle.Render(text)
}

// Section renders a section header
func Section(text string) string {
	return sectionStyle.Render(text)
}

// Separator renders a horizontal rule
func Separator() string {
	return mutedStyle.Render(strings.Repeat("─", 50))
}

// statusColor picks the color of a status badge
func statusColor(s reportapi.ExecutionStatus) *color.Color {
	switch s {
	case reportapi.StatusCompleted:
		return color.New(color.FgGreen, color.Bold)
	case reportapi.StatusRendering, reportapi.StatusLoaded:
		return color.New(color.FgCyan, color.Bold)
	case reportapi.StatusStopped:
		return color.New(color.FgYellow, color.Bold)
	case reportapi.StatusCleared:
		return color.New(color.FgHiBlack)
	}
	return color.New(color.FgWhite)
}

// StatusBadge renders an execution status
func StatusBadge(s reportapi.ExecutionStatus) string {
	symbol := "●"
	switch s {
	case reportapi.StatusCompleted:
		symbol = "✓"
	case reportapi.StatusStopped:
		symbol = "■"
	case reportapi.StatusCleared:
		symbol = "○"
	}
	return statusColor(s).Sprint(symbol + " " + string(s))
}

// PrintError writes err in red
func PrintError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(w, "✗ ")
	fmt.Fprintln(w, err.Error())
}

// PrintSuccess writes msg in green
func PrintSuccess(w io.Writer, msg string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprint(w, "✓ ")
	fmt.Fprintln(w, msg)
}
