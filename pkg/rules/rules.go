// Package rules holds the named validation rules declared next to the
// manifest schema.
//
// Rules are addressed through a closed set of IDs. The registry loads the
// declarations from the schema file, checks them against that set and
// records which rules a validation run actually used.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ID identifies a validation rule. Its string form is the rule name used in
// the schema file.
type ID string

const (
	EmptyOrList             ID = "empty_or_list"
	RedundantOr             ID = "redundant_or_warning"
	EmptyAndList            ID = "empty_and_list"
	RedundantAnd            ID = "redundant_and_warning"
	EmptyConditionsList     ID = "empty_conditions_list"
	ReferenceMustExist      ID = "reference_must_exist"
	InvalidReferenceFormat  ID = "invalid_reference_format"
	UnknownReferenceFormat  ID = "unknown_reference_format"
	NoDuplicatedObjectField ID = "no_duplicated_object_field"
	DatasetNotFound         ID = "dataset_not_found"
	CollectionNotFound      ID = "collection_not_found"
	UnusedDataset           ID = "unused_dataset"
	UnusedCollection        ID = "unused_collection"
	SchemaValidationError   ID = "schema_validation_error"
)

var known = []ID{
	EmptyOrList,
	RedundantOr,
	EmptyAndList,
	RedundantAnd,
	EmptyConditionsList,
	ReferenceMustExist,
	InvalidReferenceFormat,
	UnknownReferenceFormat,
	NoDuplicatedObjectField,
	DatasetNotFound,
	CollectionNotFound,
	UnusedDataset,
	UnusedCollection,
	SchemaValidationError,
}

// All returns every rule ID the validator can emit.
func All() []ID {
	return slices.Clone(known)
}

// Level is the severity a rule reports with.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// ErrUnregistered is returned by a strict registry when a rule that is not
// declared in the schema is looked up.
var ErrUnregistered = errors.New("validation rule is not registered in schema")

// Rule is a single declared validation rule.
type Rule struct {
	ID          ID
	Description string
	Level       Level
	// Text is either a fixed message or a template with {name} placeholders.
	Text      string
	Templated bool
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Message renders the rule text. Placeholders are replaced from subs; if any
// placeholder has no substitution the raw text is returned unchanged.
func (r *Rule) Message(subs map[string]string) string {
	if !strings.Contains(r.Text, "{") {
		return r.Text
	}
	if !r.Templated && len(subs) == 0 {
		return r.Text
	}
	missing := false
	out := placeholder.ReplaceAllStringFunc(r.Text, func(m string) string {
		v, ok := subs[m[1:len(m)-1]]
		if !ok {
			missing = true
			return m
		}
		return v
	})
	if missing {
		return r.Text
	}
	return out
}

// Declaration is the on-disk shape of one entry under validation_rules.
type Declaration struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description"`
	Level           string `yaml:"level"`
	Message         string `yaml:"message"`
	MessageTemplate string `yaml:"message_template"`
	Error           string `yaml:"error"`
	Warning         string `yaml:"warning"`
	ErrorTemplate   string `yaml:"error_template"`
	WarningTemplate string `yaml:"warning_template"`
}

// Options controls how declarations are loaded and looked up.
type Options struct {
	// Strict makes misdeclared rules and lookups of unregistered rules
	// fatal. A lenient registry skips bad declarations and returns nil for
	// unknown rules.
	Strict bool
	Logger *slog.Logger
}

// Registry is the set of declared rules. Lookups mark rules as used; marking
// is safe for concurrent use.
type Registry struct {
	strict bool
	rules  map[ID]*Rule
	order  []ID
	used   sync.Map
}

type document struct {
	Rules []Declaration `yaml:"validation_rules"`
}

// Load parses the validation_rules section of a schema document.
func Load(data []byte, opts Options) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if opts.Strict {
			return nil, fmt.Errorf("parse validation rules: %w", err)
		}
		logger(opts).Warn("validation rules could not be parsed", "error", err)
		return newRegistry(opts.Strict), nil
	}
	return FromDeclarations(doc.Rules, opts)
}

// FromDeclarations builds a registry from already decoded declarations.
func FromDeclarations(decls []Declaration, opts Options) (*Registry, error) {
	reg := newRegistry(opts.Strict)
	log := logger(opts)

	if len(decls) == 0 {
		if opts.Strict {
			return nil, errors.New("no validation rules found in schema")
		}
		log.Warn("no validation rules found in schema")
		return reg, nil
	}

	var problems []string
	for _, d := range decls {
		rule, err := d.rule()
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if _, dup := reg.rules[rule.ID]; dup {
			problems = append(problems, fmt.Sprintf("rule %q is declared more than once", rule.ID))
			continue
		}
		reg.rules[rule.ID] = rule
		reg.order = append(reg.order, rule.ID)
	}

	if opts.Strict {
		for _, id := range known {
			if _, ok := reg.rules[id]; !ok {
				problems = append(problems, fmt.Sprintf("rule %q is used by the validator but not declared", id))
			}
		}
	}

	if len(problems) > 0 {
		if opts.Strict {
			return nil, fmt.Errorf("failed to register validation rules:\n  - %s", strings.Join(problems, "\n  - "))
		}
		for _, p := range problems {
			log.Warn("skipping validation rule", "problem", p)
		}
	}
	return reg, nil
}

func (d Declaration) rule() (*Rule, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("rule without 'name' field (description %q)", d.Description)
	}
	level := Level(strings.ToLower(d.Level))
	if level != LevelError && level != LevelWarning {
		return nil, fmt.Errorf("rule %q: invalid level %q, must be 'error' or 'warning'", d.Name, d.Level)
	}

	var forms []string
	for _, f := range []string{d.Message, d.MessageTemplate, d.Error, d.Warning, d.ErrorTemplate, d.WarningTemplate} {
		if f != "" {
			forms = append(forms, f)
		}
	}
	switch len(forms) {
	case 0:
		return nil, fmt.Errorf("rule %q must have either a message or a message template", d.Name)
	case 1:
	default:
		return nil, fmt.Errorf("rule %q declares more than one message form", d.Name)
	}

	r := &Rule{ID: ID(d.Name), Description: d.Description, Level: level}
	switch {
	case d.Message != "":
		r.Text = d.Message
	case d.MessageTemplate != "":
		r.Text, r.Templated = d.MessageTemplate, true
	}
	switch level {
	case LevelError:
		if d.Error != "" {
			r.Text = d.Error
		} else if d.ErrorTemplate != "" {
			r.Text, r.Templated = d.ErrorTemplate, true
		}
	case LevelWarning:
		if d.Warning != "" {
			r.Text = d.Warning
		} else if d.WarningTemplate != "" {
			r.Text, r.Templated = d.WarningTemplate, true
		}
	}
	if r.Text == "" {
		return nil, fmt.Errorf("rule %q: %s rule must use '%s' or '%s_template'", d.Name, level, level, level)
	}
	return r, nil
}

func newRegistry(strict bool) *Registry {
	return &Registry{strict: strict, rules: make(map[ID]*Rule)}
}

func logger(opts Options) *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return slog.Default()
}

// Strict reports whether the registry was loaded in strict mode.
func (r *Registry) Strict() bool { return r.strict }

// Get returns the rule and marks it used. A strict registry returns
// ErrUnregistered for unknown rules; a lenient one returns nil, nil.
func (r *Registry) Get(id ID) (*Rule, error) {
	rule, ok := r.rules[id]
	if !ok {
		if r.strict {
			return nil, fmt.Errorf("%w: %q", ErrUnregistered, id)
		}
		return nil, nil
	}
	r.used.Store(id, struct{}{})
	return rule, nil
}

// Has reports whether id is declared. It does not mark the rule used.
func (r *Registry) Has(id ID) bool {
	_, ok := r.rules[id]
	return ok
}

// Rules returns the declared rules in declaration order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// ByLevel returns the declared rules with the given level.
func (r *Registry) ByLevel(level Level) []*Rule {
	var out []*Rule
	for _, rule := range r.Rules() {
		if rule.Level == level {
			out = append(out, rule)
		}
	}
	return out
}

// Used returns the IDs looked up so far, in declaration order.
func (r *Registry) Used() []ID {
	var out []ID
	for _, id := range r.order {
		if _, ok := r.used.Load(id); ok {
			out = append(out, id)
		}
	}
	return out
}

// Unused returns declared rules that were never looked up. Run it after
// validating a representative corpus to find dead rules.
func (r *Registry) Unused() []ID {
	var out []ID
	for _, id := range r.order {
		if _, ok := r.used.Load(id); !ok {
			out = append(out, id)
		}
	}
	return out
}
