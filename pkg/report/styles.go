package report

import "github.com/charmbracelet/lipgloss"

// Issue glyphs. The marker points at the offending source line.
const (
	GlyphMarker = "→"
	GlyphGutter = "│"
	GlyphRule   = "─"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

// styles are bound to one renderer so that a report written to a file or
// pipe degrades to plain text independently of stdout.
type styles struct {
	errorLabel   lipgloss.Style
	warningLabel lipgloss.Style
	errorText    lipgloss.Style
	warningText  lipgloss.Style
	location     lipgloss.Style
	path         lipgloss.Style

	// --- Excerpt ---
	marker     lipgloss.Style
	lineNumber lipgloss.Style
	hotLine    lipgloss.Style
	dim        lipgloss.Style

	// --- Summary ---
	failed lipgloss.Style
	warned lipgloss.Style
	passed lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		errorLabel: r.NewStyle().
			Bold(true).
			Foreground(colorRed),
		warningLabel: r.NewStyle().
			Bold(true).
			Foreground(colorYellow),
		errorText: r.NewStyle().
			Foreground(colorRed),
		warningText: r.NewStyle().
			Foreground(colorYellow),
		location: r.NewStyle().
			Foreground(colorCyan),
		path: r.NewStyle().
			Foreground(colorDim),

		marker: r.NewStyle().
			Bold(true).
			Foreground(colorRed),
		lineNumber: r.NewStyle().
			Foreground(colorYellow),
		hotLine: r.NewStyle().
			Foreground(colorRed),
		dim: r.NewStyle().
			Foreground(colorDim),

		failed: r.NewStyle().
			Bold(true).
			Foreground(colorRed),
		warned: r.NewStyle().
			Bold(true).
			Foreground(colorYellow),
		passed: r.NewStyle().
			Bold(true).
			Foreground(colorGreen),
	}
}
