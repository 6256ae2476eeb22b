package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// PrintTitle prints a bold heading.
func PrintTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

// PrintSuccess prints a green status line.
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✓ "+msg))
}

// PrintError prints a red error line.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✗ "+msg))
}

// PrintField prints a dimmed label followed by its value.
func PrintField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", subtleStyle.Render(label+":"), value)
}
