package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ormasoftchile/modlint/pkg/rules"
)

// Catalog lists the declared rules as a markdown table.
func Catalog(reg *rules.Registry) string {
	var b strings.Builder
	b.WriteString("# Validation rules\n\n")
	b.WriteString("| Rule | Level | Description | Message |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range reg.Rules() {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", r.ID, r.Level, cell(r.Description), cell(r.Text))
	}
	return b.String()
}

// UnusedCatalog lists rules that no validation used.
func UnusedCatalog(ids []rules.ID) string {
	var b strings.Builder
	b.WriteString("## Unused rules\n\n")
	if len(ids) == 0 {
		b.WriteString("Every declared rule was used.\n")
		return b.String()
	}
	for _, id := range ids {
		fmt.Fprintf(&b, "- `%s`\n", id)
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Markdown renders markdown for the terminal.
func Markdown(md string, color bool, width int) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if color {
		style = glamour.WithAutoStyle()
	}
	opts := []glamour.TermRendererOption{style}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
