// Package locate maps logical document paths back to source lines.
//
// The locator works on the raw indented text rather than on a parsed tree,
// so it stays independent of the YAML decoder and of the structural schema.
package locate

import (
	"strconv"
	"strings"
)

// Segment is one step of a Path: either a mapping key or a sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is an ordered list of segments such as module.inputLayers.0.conditions.
type Path []Segment

// ParsePath splits a dotted path. Non-negative integer components become
// index segments; everything else is a key.
// Empty components are dropped.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return FromStrings(strings.Split(s, "."))
}

// FromStrings builds a path from location parts as reported by schema
// validators, where sequence indexes arrive as decimal strings.
func FromStrings(parts []string) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil && n >= 0 && part[0] != '+' {
			p = append(p, Segment{Index: n, IsIndex: true})
			continue
		}
		p = append(p, Segment{Key: part})
	}
	return p
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Key returns a copy of p extended with a key segment.
func (p Path) Key(k string) Path {
	return p.with(Segment{Key: k})
}

// Index returns a copy of p extended with an index segment.
func (p Path) Index(i int) Path {
	return p.with(Segment{Index: i, IsIndex: true})
}

func (p Path) with(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}
