package flow

// DefaultSelectedColor is the fill applied to the selected element.
const DefaultSelectedColor = "#00D1FF"

// Overlay returns the style directives highlighting sel.
//
// A concrete index styles that one element (IndexAll styles the bare group id,
// IndexUnknown its `:?` placeholder). IndexNone styles every instance of the group, the
// placeholder of an empty group, or the bare tag when the group is not known at all.
// IndexNew has no diagram element and yields nothing.
func Overlay(sel SelectedNode, groups Groups, color string) []string {
	if color == "" {
		color = DefaultSelectedColor
	}

	switch {
	case sel.Index == IndexNew:
		return nil
	case sel.Index != IndexNone:
		return []string{styleFill(elementID(sel.Group, sel.Index), color)}
	}

	nodes, ok := groups[sel.Group]
	switch {
	case !ok:
		return []string{styleFill(sel.Group, color)}
	case len(nodes) == 0:
		return []string{styleFill(sel.Group+unknownSuffix, color)}
	}

	out := make([]string, len(nodes))
	for i := range nodes {
		out[i] = styleFill(qualify(sel.Group, i), color)
	}
	return out
}

func elementID(group string, idx Index) string {
	switch {
	case idx == IndexUnknown:
		return group + unknownSuffix
	case idx.IsInstance():
		return qualify(group, int(idx))
	}
	return group
}

func styleFill(id, color string) string {
	return "style " + id + " fill:" + color
}
