package flow

import "strings"

// Options tune a render pass.
type Options struct {
	Labeler       Labeler
	SelectedColor string
}

// Render expands template against groups and appends the selection overlay for sel,
// if any.
func Render(template string, groups Groups, sel *SelectedNode, opts Options) string {
	chart := Expand(template, groups, opts.Labeler)
	if sel == nil {
		return chart
	}

	styles := Overlay(*sel, groups, opts.SelectedColor)
	if len(styles) == 0 {
		return chart
	}
	return chart + "\n" + strings.Join(styles, "\n")
}
