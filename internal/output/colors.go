package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// IsTerminal reports whether w is a terminal; anything without a file
// descriptor (buffers, pipes wrapped in writers) is not.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewRenderer returns a lipgloss renderer for w. Colour is disabled when w is
// not a terminal so CI logs stay free of escape sequences.
func NewRenderer(w io.Writer) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if !IsTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// Styles holds the styles used for console output
type Styles struct {
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Tip     lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Running lipgloss.Style
}

// NewStyles creates the console styles for a renderer
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Tip:     r.NewStyle().Foreground(lipgloss.Color("6")),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Running: r.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

// Status colours a CI pipeline or job status
func (s Styles) Status(status string) string {
	switch status {
	case "success":
		return s.Success.Render(status)
	case "failed":
		return s.Error.Render(status)
	case "canceled", "skipped", "manual":
		return s.Dim.Render(status)
	case "running", "pending", "created", "preparing", "waiting_for_resource", "scheduled":
		return s.Running.Render(status)
	default:
		return status
	}
}
