package flow

import "strings"

// LineKind classifies a template line.
type LineKind int

const (
	RawLine LineKind = iota
	DefLine
	EdgeLine
	StyleLine
)

// Line is one parsed template line.
//
// For DefLine, Tag is the group tag and Rest the shape/label suffix (e.g. `[(db $nodeNum)]`).
// For EdgeLine, Tag and To hold both endpoints. For StyleLine, Tag is the styled element
// and Rest the directive. Text always keeps the normalized source line.
type Line struct {
	Text string
	Tag  string
	To   string
	Rest string
	Kind LineKind
}

// Template is a parsed flowchart template.
type Template struct {
	Lines []Line
	tags  map[string]struct{}
}

// Parse splits a template into left-trimmed, non-empty lines and classifies each one.
func Parse(src string) Template {
	t := Template{tags: map[string]struct{}{}}
	for _, raw := range strings.Split(src, "\n") {
		text := strings.TrimLeft(strings.TrimRight(raw, "\r"), " \t\v\f\r")
		if text == "" {
			continue
		}
		l := parseLine(text)
		if l.Kind == DefLine {
			t.tags[l.Tag] = struct{}{}
		}
		t.Lines = append(t.Lines, l)
	}
	return t
}

// HasTag reports whether tag appears on a definition line.
func (t Template) HasTag(tag string) bool {
	_, ok := t.tags[tag]
	return ok
}

// Tags returns the tags defined by the template in order of first definition.
func (t Template) Tags() []string {
	var tags []string
	seen := map[string]bool{}
	for _, l := range t.Lines {
		if l.Kind == DefLine && !seen[l.Tag] {
			seen[l.Tag] = true
			tags = append(tags, l.Tag)
		}
	}
	return tags
}

func parseLine(text string) Line {
	if rest, ok := strings.CutPrefix(text, "style "); ok {
		id, directive, found := strings.Cut(rest, " ")
		if found && isIdent(id) {
			return Line{Kind: StyleLine, Text: text, Tag: id, Rest: directive}
		}
		return Line{Kind: RawLine, Text: text}
	}

	n := identLen(text)
	if n == 0 {
		return Line{Kind: RawLine, Text: text}
	}
	tag, rest := text[:n], text[n:]

	if isShapeOpen(rest[0:min(1, len(rest))]) {
		return Line{Kind: DefLine, Text: text, Tag: tag, Rest: rest}
	}

	if after, ok := strings.CutPrefix(strings.TrimLeft(rest, " \t"), "-->"); ok {
		to := strings.TrimSpace(after)
		if isIdent(to) {
			return Line{Kind: EdgeLine, Text: text, Tag: tag, To: to}
		}
	}

	return Line{Kind: RawLine, Text: text}
}

func isShapeOpen(s string) bool {
	return s == "[" || s == "(" || s == "{"
}

func identLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return i
		}
	}
	return len(s)
}

func isIdent(s string) bool {
	return s != "" && identLen(s) == len(s)
}
