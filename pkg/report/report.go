// Package report renders validation results as styled text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/ormasoftchile/modlint/pkg/validate"
)

const ruleWidth = 60

// Options controls text rendering.
type Options struct {
	// Color enables styling. Output that is not a terminal is plain
	// regardless.
	Color bool
	// ContextLines is the number of source lines shown on each side of the
	// offending line.
	ContextLines int
	// MaxWidth truncates wider source lines in excerpts; 0 disables it.
	MaxWidth int
}

// Formatter writes text reports to one writer.
type Formatter struct {
	w    io.Writer
	opts Options
	st   styles
}

// New returns a formatter writing to w.
func New(w io.Writer, opts Options) *Formatter {
	r := lipgloss.NewRenderer(w)
	if !opts.Color {
		r.SetColorProfile(termenv.Ascii)
	}
	if opts.ContextLines < 0 {
		opts.ContextLines = 0
	}
	return &Formatter{w: w, opts: opts, st: newStyles(r)}
}

// Write renders warnings, then errors, then the summary line.
func (f *Formatter) Write(res *validate.Result) error {
	var b strings.Builder
	if len(res.Warnings) > 0 {
		b.WriteString("\n" + f.st.warned.Render("Warnings:") + "\n\n")
		for _, w := range res.Warnings {
			b.WriteString(f.Issue(res, w) + "\n\n")
		}
	}
	if len(res.Errors) > 0 {
		b.WriteString("\n" + f.st.failed.Render("Errors:") + "\n\n")
		for _, e := range res.Errors {
			b.WriteString(f.Issue(res, e) + "\n\n")
		}
	}
	b.WriteString("\n" + f.Summary(res) + "\n")
	_, err := io.WriteString(f.w, b.String())
	return err
}

// Issue renders one issue with its source excerpt.
func (f *Formatter) Issue(res *validate.Result, issue *validate.Issue) string {
	label, text := f.st.errorLabel.Render("ERROR"), f.st.errorText
	if issue.Severity == validate.SeverityWarning {
		label, text = f.st.warningLabel.Render("WARNING"), f.st.warningText
	}

	loc := res.Path
	if issue.Line > 0 {
		loc += ":" + strconv.Itoa(issue.Line)
	}
	header := " " + label + " " + f.st.location.Render(loc)
	if issue.Path != "" {
		header += " " + f.st.path.Render("("+issue.Path+")")
	}
	lines := []string{header, "    " + text.Render(issue.Message)}
	return strings.Join(append(lines, f.excerpt(res.Lines, issue.Line)...), "\n")
}

func (f *Formatter) excerpt(source []string, line int) []string {
	if line <= 0 || line > len(source) {
		return nil
	}
	first := max(1, line-f.opts.ContextLines)
	last := min(len(source), line+f.opts.ContextLines)

	rule := "    " + f.st.dim.Render(strings.Repeat(GlyphRule, ruleWidth))
	out := []string{"", rule}
	for n := first; n <= last; n++ {
		text := f.truncate(source[n-1])
		if n == line {
			out = append(out, "    "+f.st.marker.Render(GlyphMarker)+f.st.lineNumber.Render(fmt.Sprintf("%4d", n))+
				" "+GlyphGutter+" "+f.st.hotLine.Render(text))
			continue
		}
		out = append(out, "    "+f.st.dim.Render(fmt.Sprintf(" %4d", n))+" "+GlyphGutter+" "+f.st.dim.Render(text))
	}
	return append(out, rule)
}

func (f *Formatter) truncate(s string) string {
	if f.opts.MaxWidth <= 0 || runewidth.StringWidth(s) <= f.opts.MaxWidth {
		return s
	}
	return runewidth.Truncate(s, f.opts.MaxWidth, "…")
}

// Summary is the closing line of a report.
func (f *Formatter) Summary(res *validate.Result) string {
	errs, warns := len(res.Errors), len(res.Warnings)
	switch {
	case errs > 0:
		return f.st.failed.Render("Validation failed:") + " " +
			f.st.errorText.Render(fmt.Sprintf("%d error(s)", errs)) + ", " +
			f.st.warningText.Render(fmt.Sprintf("%d warning(s)", warns))
	case warns > 0:
		return f.st.warned.Render("Validation passed with warnings:") + " " +
			f.st.warningText.Render(fmt.Sprintf("%d warning(s)", warns))
	default:
		return f.st.passed.Render("Validation passed:") + " no errors or warnings"
	}
}

type jsonReport struct {
	Path     string            `json:"path"`
	Valid    bool              `json:"valid"`
	Errors   []*validate.Issue `json:"errors"`
	Warnings []*validate.Issue `json:"warnings"`
	RunID    string            `json:"run_id,omitempty"`
}

// JSON writes res as an indented JSON document.
func JSON(w io.Writer, res *validate.Result) error {
	out := jsonReport{
		Path:     res.Path,
		Valid:    res.Valid(),
		Errors:   res.Errors,
		Warnings: res.Warnings,
		RunID:    res.RunID,
	}
	if out.Errors == nil {
		out.Errors = []*validate.Issue{}
	}
	if out.Warnings == nil {
		out.Warnings = []*validate.Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
