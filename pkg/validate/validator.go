package validate

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ormasoftchile/modlint/pkg/locate"
	"github.com/ormasoftchile/modlint/pkg/manifest"
	"github.com/ormasoftchile/modlint/pkg/rules"
	"github.com/ormasoftchile/modlint/pkg/schema"
)

// Observer receives the outcome of every validation run.
type Observer interface {
	ObserveValidation(valid bool, errs, warns int, elapsed time.Duration)
}

// ProgressFunc is called as a run moves through its stages. Value is the
// completed fraction in [0, 1].
type ProgressFunc func(value float64, stage string)

// Validator checks manifests against one schema and rule registry. It is
// safe to reuse; runs share the registry's usage tracking.
type Validator struct {
	schema   *sjsonschema.Schema
	registry *rules.Registry
	fallback *rules.Registry
	logger   *slog.Logger
	observer Observer
	progress ProgressFunc
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for stage tracing.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithObserver reports every run to o.
func WithObserver(o Observer) Option {
	return func(v *Validator) { v.observer = o }
}

// WithProgress reports stage progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(v *Validator) { v.progress = fn }
}

// New compiles the structural schema of src. A lenient registry is backed
// by the bundled rules so that findings for undeclared rules keep a
// message.
func New(src *schema.Source, reg *rules.Registry, opts ...Option) (*Validator, error) {
	sch, err := compileStructural(src)
	if err != nil {
		return nil, fmt.Errorf("structural schema %s: %w", src.Name(), err)
	}
	v := &Validator{
		schema:   sch,
		registry: reg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	if !reg.Strict() {
		fallback, err := rules.Load(schema.BundledData(), rules.Options{Logger: v.logger})
		if err != nil {
			return nil, fmt.Errorf("bundled rules: %w", err)
		}
		v.fallback = fallback
	}
	return v, nil
}

// ValidateFile validates the manifest at path. Problems with the manifest
// are reported in the result; the error is non-nil only when the run was
// aborted, e.g. by a strict lookup of an undeclared rule.
func (v *Validator) ValidateFile(path string) (*Result, error) {
	r := v.newRun(path)
	doc, err := manifest.Load(path)
	return r.finish(doc, err)
}

// ValidateBytes validates manifest text. Name is used in the result and in
// messages.
func (v *Validator) ValidateBytes(name string, data []byte) (*Result, error) {
	r := v.newRun(name)
	doc, err := manifest.Parse(name, data)
	return r.finish(doc, err)
}

// run is the state of a single validation.
type run struct {
	v       *Validator
	res     *Result
	loc     *locate.Locator
	refs    references
	phase   Phase
	started time.Time
	log     *slog.Logger
	aborted error
}

func (v *Validator) newRun(path string) *run {
	id := uuid.NewString()
	return &run{
		v:       v,
		res:     &Result{Path: path, RunID: id},
		loc:     locate.New(nil),
		started: time.Now(),
		log:     v.logger.With("run_id", id, "manifest", path),
	}
}

func (r *run) finish(doc *manifest.Document, loadErr error) (*Result, error) {
	r.log.Debug("validation started")
	if doc != nil {
		r.res.Lines = doc.Lines
		r.loc = locate.New(doc.Lines)
	}
	r.stage(0.1, "load")
	if loadErr != nil {
		r.loadIssue(loadErr)
	} else {
		r.validate(doc.Root)
	}

	r.res.Warnings = dedupeWarnings(r.res.Warnings)
	r.res.Duration = time.Since(r.started)
	r.stage(1, "done")
	if r.v.observer != nil {
		r.v.observer.ObserveValidation(r.res.Valid(), len(r.res.Errors), len(r.res.Warnings), r.res.Duration)
	}
	r.log.Debug("validation finished",
		"valid", r.res.Valid(),
		"errors", len(r.res.Errors),
		"warnings", len(r.res.Warnings),
		"duration", r.res.Duration)
	if r.aborted != nil {
		return r.res, fmt.Errorf("validation aborted: %w", r.aborted)
	}
	return r.res, nil
}

func (r *run) stage(value float64, name string) {
	if r.v.progress != nil {
		r.v.progress(value, name)
	}
}

func (r *run) loadIssue(err error) {
	r.phase = PhaseLoad
	issue := &Issue{Severity: SeverityError, Phase: PhaseLoad}
	var syn *manifest.SyntaxError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		abs, aerr := filepath.Abs(r.res.Path)
		if aerr != nil {
			abs = r.res.Path
		}
		issue.Message = "Manifest file not found: " + abs
	case errors.As(err, &syn):
		issue.Message = "Invalid YAML syntax: " + syn.Err.Error()
		issue.Line = syn.Line
	case errors.Is(err, manifest.ErrEmpty):
		issue.Message = "Manifest file is empty"
		issue.Line = 1
	default:
		issue.Message = "Failed to load manifest: " + err.Error()
	}
	r.log.Debug("manifest could not be loaded", "error", err)
	r.res.Errors = append(r.res.Errors, issue)
}

func (r *run) validate(root any) {
	r.phase = PhaseStructural
	if r.structural(root) {
		return
	}
	r.stage(0.4, "structure")

	doc, _ := root.(map[string]any)
	module, _ := doc["module"].(map[string]any)
	r.phase = PhaseSemantic
	r.refs = collectReferences(module)
	r.checkDuplicates(module)
	r.stage(0.55, "duplicates")
	r.checkCrossReferences(module)
	r.stage(0.7, "references")
	r.checkUnused(module)
	r.stage(0.8, "unused")
	r.checkConditions(module)
	r.stage(0.95, "conditions")
}

// structural reports schema violations and whether any were found.
func (r *run) structural(root any) bool {
	findings := structuralFindings(r.v.schema, root)
	r.log.Debug("structural validation", "violations", len(findings))
	if len(findings) == 0 {
		return false
	}
	type located struct {
		path locate.Path
		line int
		msg  string
	}
	out := make([]located, 0, len(findings))
	for _, f := range findings {
		p := locate.FromStrings(f.loc)
		out = append(out, located{p, r.loc.FindLine(p), f.message})
	}
	slices.SortStableFunc(out, func(a, b located) int {
		return cmp.Or(
			cmp.Compare(lineKey(a.line), lineKey(b.line)),
			strings.Compare(a.path.String(), b.path.String()),
			strings.Compare(a.msg, b.msg),
		)
	})
	for _, l := range out {
		r.add(rules.SchemaValidationError, l.path, l.line, map[string]string{"message": l.msg})
	}
	return true
}

// lineKey sorts unknown lines last.
func lineKey(line int) int {
	if line == 0 {
		return math.MaxInt
	}
	return line
}

// report emits a finding for rule id at path.
func (r *run) report(id rules.ID, path locate.Path, subs map[string]string) {
	r.add(id, path, r.loc.FindLine(path), subs)
}

func (r *run) add(id rules.ID, path locate.Path, line int, subs map[string]string) {
	rule, err := r.v.registry.Get(id)
	if err != nil {
		if r.aborted == nil {
			r.aborted = err
		}
		return
	}
	if rule == nil && r.v.fallback != nil {
		rule, _ = r.v.fallback.Get(id)
		r.log.Warn("validation rule not declared in schema, using bundled rule", "rule", id)
	}
	if rule == nil {
		return
	}
	p := path.String()
	if p == "" {
		p = "root"
	}
	issue := &Issue{
		Message: rule.Message(subs),
		Path:    p,
		Line:    line,
		Phase:   r.phase,
		Rule:    id,
	}
	if rule.Level == rules.LevelWarning {
		issue.Severity = SeverityWarning
		r.res.Warnings = append(r.res.Warnings, issue)
		return
	}
	issue.Severity = SeverityError
	r.res.Errors = append(r.res.Errors, issue)
}
