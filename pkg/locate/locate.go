package locate

import "strings"

const defaultIndentStep = 2

// Locator finds the source line of a logical path in indented YAML text.
// Sequences may be indented under their key or written at the key's own
// indentation. Flow collections are not descended into.
type Locator struct {
	lines []string
}

// New returns a locator over the given source lines.
func New(lines []string) *Locator {
	return &Locator{lines: lines}
}

// FindLineString is FindLine for a dotted path.
func (l *Locator) FindLineString(path string) int {
	return l.FindLine(ParsePath(path))
}

// FindLine returns the 1-based line holding the last segment of p, or 0 when
// the path cannot be located.
func (l *Locator) FindLine(p Path) int {
	if len(p) == 0 || len(l.lines) == 0 {
		return 0
	}
	return l.find(p, 0, len(l.lines), 0)
}

func (l *Locator) find(p Path, start, end, indent int) int {
	if len(p) == 0 {
		if start < len(l.lines) {
			return start + 1
		}
		return 0
	}
	seg, rest := p[0], p[1:]

	at, sectionEnd, ok := l.component(seg, start, end, indent)
	if !ok {
		return 0
	}
	if len(rest) == 0 {
		return at + 1
	}

	// "- key: value" item where the next segment names key: consume both
	// segments on this line and continue inside the key's own block.
	if seg.IsIndex && !rest[0].IsIndex {
		if key, value, col, inline := itemKey(l.lines[at]); inline && key == rest[0].Key {
			rest = rest[1:]
			if len(rest) == 0 {
				return at + 1
			}
			if value != "" {
				return 0
			}
			if rest[0].IsIndex {
				if compact, ok := l.compactEnd(at, col, sectionEnd); ok {
					return l.find(rest, at+1, compact, col)
				}
			}
			blockEnd := l.blockEnd(at, col, sectionEnd)
			next := col + l.indentStep(at+1, blockEnd, col)
			return l.find(rest, at+1, blockEnd, next)
		}
	}

	// key:
	// - item
	if !seg.IsIndex && rest[0].IsIndex {
		if compact, ok := l.compactEnd(at, indent, end); ok {
			return l.find(rest, at+1, compact, indent)
		}
	}

	next := indent + l.indentStep(at+1, sectionEnd, indent)
	return l.find(rest, at+1, sectionEnd, next)
}

// compactEnd reports whether the lines after start hold a sequence written
// at indent itself, and where that sequence ends.
func (l *Locator) compactEnd(start, indent, limit int) (int, bool) {
	limit = min(limit, len(l.lines))
	first := true
	for i := start + 1; i < limit; i++ {
		trimmed := strings.TrimSpace(l.lines[i])
		if skip(trimmed) {
			continue
		}
		actual := indentOf(l.lines[i])
		if first {
			if actual != indent || !isItem(trimmed) {
				return 0, false
			}
			first = false
			continue
		}
		if actual < indent || (actual == indent && !isItem(trimmed)) {
			return i, true
		}
	}
	return limit, !first
}

// component scans [start, end) for seg at exactly indent. It returns the
// matching line and the end of its block.
func (l *Locator) component(seg Segment, start, end, indent int) (int, int, bool) {
	end = min(end, len(l.lines))
	item := -1
	for i := start; i < end; i++ {
		line := l.lines[i]
		trimmed := strings.TrimSpace(line)
		if skip(trimmed) {
			continue
		}
		actual := indentOf(line)
		if actual < indent {
			return 0, i, false
		}
		if actual != indent {
			continue
		}
		if seg.IsIndex {
			if isItem(trimmed) {
				item++
				if item == seg.Index {
					return i, l.sectionEnd(i, indent, end), true
				}
			}
			continue
		}
		if isItem(trimmed) {
			continue
		}
		if key, ok := lineKey(trimmed); ok && key == seg.Key {
			return i, l.sectionEnd(i, indent, end), true
		}
	}
	return 0, end, false
}

// sectionEnd returns the first line after start that opens a sibling or
// outer entry.
func (l *Locator) sectionEnd(start, indent, limit int) int {
	limit = min(limit, len(l.lines))
	for i := start + 1; i < limit; i++ {
		trimmed := strings.TrimSpace(l.lines[i])
		if skip(trimmed) {
			continue
		}
		if indentOf(l.lines[i]) <= indent && (isItem(trimmed) || strings.Contains(trimmed, ":")) {
			return i
		}
	}
	return limit
}

// indentStep is the distance from parent to the shallowest child line in
// [start, end), defaulting to 2.
func (l *Locator) indentStep(start, end, parent int) int {
	end = min(end, len(l.lines))
	least := -1
	for i := start; i < end; i++ {
		if skip(strings.TrimSpace(l.lines[i])) {
			continue
		}
		if actual := indentOf(l.lines[i]); actual > parent && (least < 0 || actual < least) {
			least = actual
		}
	}
	if least < 0 {
		return defaultIndentStep
	}
	return least - parent
}

func skip(trimmed string) bool {
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func isItem(trimmed string) bool {
	return trimmed == "-" || strings.HasPrefix(trimmed, "- ")
}

// lineKey extracts the mapping key of a trimmed line, ignoring a leading
// sequence dash and surrounding quotes.
func lineKey(trimmed string) (string, bool) {
	before, _, found := strings.Cut(trimmed, ":")
	if !found {
		return "", false
	}
	key := strings.TrimSpace(before)
	if strings.HasPrefix(key, "-") {
		key = strings.TrimSpace(key[1:])
	}
	return unquote(key), true
}

// itemKey reports the key, inline value and key column of a "- key: value"
// line. A trailing comment does not count as a value.
func itemKey(line string) (key, value string, col int, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !isItem(trimmed) || !strings.Contains(trimmed, ":") {
		return "", "", 0, false
	}
	key, _ = lineKey(trimmed)
	_, after, _ := strings.Cut(trimmed, ":")
	value = strings.TrimSpace(after)
	if strings.HasPrefix(value, "#") {
		value = ""
	}
	afterDash := trimmed[1:]
	col = indentOf(line) + 1 + len(afterDash) - len(strings.TrimLeft(afterDash, " \t"))
	return key, value, col, true
}

// blockEnd returns the first line after start indented at or left of col.
func (l *Locator) blockEnd(start, col, limit int) int {
	limit = min(limit, len(l.lines))
	for i := start + 1; i < limit; i++ {
		if skip(strings.TrimSpace(l.lines[i])) {
			continue
		}
		if indentOf(l.lines[i]) <= col {
			return i
		}
	}
	return limit
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
