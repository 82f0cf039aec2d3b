// Package validate checks module manifests against the structural schema
// and the semantic rules of the rule registry.
package validate

import (
	"fmt"
	"time"

	"github.com/ormasoftchile/modlint/pkg/rules"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Phase is the validation stage that produced an issue.
type Phase string

const (
	PhaseLoad       Phase = "load"
	PhaseStructural Phase = "structural"
	PhaseSemantic   Phase = "semantic"
)

// Issue is a single validation finding.
type Issue struct {
	Message  string   `json:"message"`
	Path     string   `json:"path"`           // dotted path, e.g. module.inputLayers.0.conditions
	Line     int      `json:"line,omitempty"` // 1-based, 0 when unknown
	Severity Severity `json:"severity"`
	Phase    Phase    `json:"phase"`
	Rule     rules.ID `json:"rule,omitempty"`
}

func (i *Issue) Error() string {
	if i.Line > 0 {
		return fmt.Sprintf("[%s] line %d %s: %s", i.Phase, i.Line, i.Path, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Phase, i.Path, i.Message)
}

// Result is the outcome of validating one manifest.
type Result struct {
	Path     string        `json:"path"`
	Lines    []string      `json:"-"`
	Errors   []*Issue      `json:"errors"`
	Warnings []*Issue      `json:"warnings"`
	RunID    string        `json:"run_id"`
	Duration time.Duration `json:"duration_ns"`
}

// Valid reports whether no errors were found. Warnings do not count.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Issues returns warnings followed by errors.
func (r *Result) Issues() []*Issue {
	out := make([]*Issue, 0, len(r.Warnings)+len(r.Errors))
	out = append(out, r.Warnings...)
	return append(out, r.Errors...)
}

// dedupeWarnings keeps the first warning for every (message, path) pair.
func dedupeWarnings(warnings []*Issue) []*Issue {
	type key struct{ message, path string }
	seen := make(map[key]bool, len(warnings))
	out := warnings[:0:0]
	for _, w := range warnings {
		k := key{w.Message, w.Path}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}
