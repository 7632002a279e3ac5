package flow

import (
	"strconv"
	"strings"
)

// Expand renders template against groups. Lines are expanded top to bottom; definition,
// edge and style lines naming a node group produce one element per instance, everything
// else is emitted unchanged. A nil labeler falls back to DefaultLabeler.
func Expand(template string, groups Groups, labeler Labeler) string {
	return Parse(template).Expand(groups, labeler)
}

// Expand renders the parsed template against groups.
func (t Template) Expand(groups Groups, labeler Labeler) string {
	if labeler == nil {
		labeler = DefaultLabeler
	}

	defs := make(map[string]map[string]int, len(t.tags))
	for tag := range t.tags {
		defs[tag] = groups.Index(tag)
	}

	out := make([]string, 0, len(t.Lines))
	for _, l := range t.Lines {
		switch {
		case l.Kind == DefLine:
			out = append(out, expandDef(l, groups, labeler)...)
		case l.Kind == EdgeLine && t.HasTag(l.Tag) && t.HasTag(l.To):
			out = append(out, expandEdge(l, groups, defs)...)
		case l.Kind == StyleLine && t.HasTag(l.Tag):
			out = append(out, expandStyle(l, groups)...)
		default:
			out = append(out, l.Text)
		}
	}

	return strings.TrimRight(strings.Join(out, "\n"), " \t\r\n")
}

func expandDef(l Line, groups Groups, labeler Labeler) []string {
	nodes, ok := groups[l.Tag]
	if !ok {
		return []string{l.Text}
	}
	if len(nodes) == 0 {
		return []string{l.Tag + unknownSuffix + l.Rest}
	}

	out := make([]string, len(nodes))
	for i, n := range nodes {
		num := i + 1
		r := strings.NewReplacer(
			tokenNodeNum, strconv.Itoa(num),
			tokenNodeID, n.ID,
			tokenNodeLabel, labeler(n.ID, num),
		)
		out[i] = qualify(l.Tag, i) + r.Replace(l.Rest)
	}
	return out
}

func expandEdge(l Line, groups Groups, defs map[string]map[string]int) []string {
	from, to := l.Tag, l.To
	var out []string
	emit := func(f, t string) { out = append(out, f+"-->"+t) }

	fromNodes, fromKnown := groups[from]
	toNodes, toKnown := groups[to]

	if !fromKnown || len(fromNodes) == 0 {
		f := from
		if fromKnown {
			f += unknownSuffix
		}
		switch {
		case !toKnown:
			emit(f, to)
		case len(toNodes) == 0:
			emit(f, to+unknownSuffix)
		default:
			for i := range toNodes {
				emit(f, qualify(to, i))
			}
		}
		return out
	}

	// unresolved targets get distinct placeholders so mermaid draws one node each
	unknown := 0
	for i, n := range fromNodes {
		f := qualify(from, i)
		if toKnown && len(toNodes) == 0 {
			emit(f, to+unknownSuffix)
			continue
		}
		targets, declared := n.EdgesTo[to]
		if !declared || !toKnown {
			emit(f, to)
			continue
		}
		for _, id := range targets {
			pos, found := defs[to][id]
			if !found {
				emit(f, to+unknownSuffix+strconv.Itoa(unknown))
				unknown++
				continue
			}
			emit(f, qualify(to, pos))
		}
	}
	return out
}

func expandStyle(l Line, groups Groups) []string {
	nodes, ok := groups[l.Tag]
	if !ok {
		return []string{l.Text}
	}
	if len(nodes) == 0 {
		return []string{"style " + l.Tag + unknownSuffix + " " + l.Rest}
	}

	out := make([]string, len(nodes))
	for i := range nodes {
		out[i] = "style " + qualify(l.Tag, i) + " " + l.Rest
	}
	return out
}
