package flow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodes(ids ...string) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{ID: id}
	}
	return out
}

func TestParse(t *testing.T) {
	tmpl := Parse("flowchart LR\n    KC_SRC{{source}}\n\n\tDB_SRC[(db)] \r\nKC_SRC --> DB_SRC\nstyle KC_SRC fill:#fff\nKC_SRC:0-->DB_SRC\nstyle\n")

	require.Len(t, tmpl.Lines, 7)
	kinds := []LineKind{RawLine, DefLine, DefLine, EdgeLine, StyleLine, RawLine, RawLine}
	for i, l := range tmpl.Lines {
		assert.Equal(t, kinds[i], l.Kind, "line %d: %q", i, l.Text)
	}

	assert.Equal(t, "KC_SRC", tmpl.Lines[1].Tag)
	assert.Equal(t, "{{source}}", tmpl.Lines[1].Rest)
	assert.Equal(t, "DB_SRC[(db)] ", tmpl.Lines[2].Text)
	assert.Equal(t, "DB_SRC", tmpl.Lines[3].To)
	assert.Equal(t, "fill:#fff", tmpl.Lines[4].Rest)
	assert.Equal(t, []string{"KC_SRC", "DB_SRC"}, tmpl.Tags())
}

func TestExpandDefinition(t *testing.T) {
	testCases := []struct {
		name   string
		tmpl   string
		groups Groups
		want   string
	}{
		{
			name:   "absent group passes through",
			tmpl:   "DB_SRC[(source)]",
			groups: Groups{},
			want:   "DB_SRC[(source)]",
		},
		{
			name:   "empty group renders placeholder",
			tmpl:   "KC_SNK{{sink $nodeNum}}",
			groups: Groups{"KC_SNK": nil},
			want:   "KC_SNK:?{{sink $nodeNum}}",
		},
		{
			name:   "instances substitute tokens",
			tmpl:   "KC_SNK{{$nodeNum $nodeId $nodeLabel}}",
			groups: Groups{"KC_SNK": nodes("a", "b")},
			want:   "KC_SNK:0{{1 a a:1}}\nKC_SNK:1{{2 b b:2}}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Expand(tc.tmpl, tc.groups, nil))
		})
	}
}

func TestExpandDefinitionCounts(t *testing.T) {
	for n := 0; n < 5; n++ {
		t.Run(fmt.Sprintf("%d instances", n), func(t *testing.T) {
			grp := make([]Node, n)
			for i := range grp {
				grp[i] = Node{ID: fmt.Sprintf("n%d", i)}
			}

			out := strings.Split(Expand("G[x]", Groups{"G": grp}, nil), "\n")
			if n == 0 {
				assert.Equal(t, []string{"G:?[x]"}, out)
				return
			}

			require.Len(t, out, n)
			for i, l := range out {
				assert.Equal(t, fmt.Sprintf("G:%d[x]", i), l)
			}
		})
	}
}

func TestExpandCustomLabeler(t *testing.T) {
	labeler := func(id string, num int) string { return strings.ToUpper(id) }
	got := Expand("T[$nodeLabel]", Groups{"T": nodes("orders")}, labeler)
	assert.Equal(t, "T:0[ORDERS]", got)
}

func TestExpandEdge(t *testing.T) {
	defs := "A[a]\nB[b]\n"

	testCases := []struct {
		name   string
		groups Groups
		want   []string
	}{
		{
			name:   "from with instances to empty group",
			groups: Groups{"A": nodes("x", "y"), "B": nil},
			want:   []string{"A:0-->B:?", "A:1-->B:?"},
		},
		{
			name:   "static from to group instances",
			groups: Groups{"B": nodes("x", "y")},
			want:   []string{"A-->B:0", "A-->B:1"},
		},
		{
			name:   "empty from to empty group",
			groups: Groups{"A": nil, "B": nil},
			want:   []string{"A:?-->B:?"},
		},
		{
			name:   "empty from to static",
			groups: Groups{"A": nil},
			want:   []string{"A:?-->B"},
		},
		{
			name:   "both static",
			groups: Groups{},
			want:   []string{"A-->B"},
		},
		{
			name:   "instances without edges use bare target",
			groups: Groups{"A": nodes("x"), "B": nodes("p")},
			want:   []string{"A:0-->B"},
		},
		{
			name:   "instances to static target",
			groups: Groups{"A": nodes("x", "y")},
			want:   []string{"A:0-->B", "A:1-->B"},
		},
		{
			name: "declared edges resolve through the index",
			groups: Groups{
				"A": {
					{ID: "x", EdgesTo: EdgesTo{"B": {"q", "missing", "p"}}},
					{ID: "y", EdgesTo: EdgesTo{"B": {"gone"}}},
				},
				"B": nodes("p", "q"),
			},
			want: []string{"A:0-->B:1", "A:0-->B:?0", "A:0-->B:0", "A:1-->B:?1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := Expand(defs+"A-->B", tc.groups, nil)
			lines := strings.Split(out, "\n")
			assert.Equal(t, tc.want, lines[len(lines)-len(tc.want):])
		})
	}
}

func TestExpandEdgeRequiresTemplateTags(t *testing.T) {
	groups := Groups{"A": nodes("x"), "B": nodes("y")}
	assert.Equal(t, "A-->B", Expand("A-->B", groups, nil))
	assert.Equal(t, "A[a]\nA-->C", Expand("A[a]\nA-->C", Groups{"C": nil}, nil))
}

func TestExpandStyle(t *testing.T) {
	tmpl := "A[a]\nstyle A fill:#f9f,stroke:#333"

	assert.Equal(t, "A:?[a]\nstyle A:? fill:#f9f,stroke:#333", Expand(tmpl, Groups{"A": nil}, nil))
	assert.Equal(t,
		"A:0[a]\nA:1[a]\nstyle A:0 fill:#f9f,stroke:#333\nstyle A:1 fill:#f9f,stroke:#333",
		Expand(tmpl, Groups{"A": nodes("x", "y")}, nil))
	assert.Equal(t, "A[a]\nstyle A fill:#f9f,stroke:#333", Expand(tmpl, Groups{}, nil))
	assert.Equal(t, "style Z fill:#000", Expand("style Z fill:#000", Groups{"Z": nil}, nil))
}

func TestExpandDeterministic(t *testing.T) {
	groups := Groups{
		"A": {
			{ID: "x", EdgesTo: EdgesTo{"B": {"p", "nope"}, "C": {"r"}}},
			{ID: "y", EdgesTo: EdgesTo{"C": {"r", "s"}}},
		},
		"B": nodes("p"),
		"C": nodes("s", "r"),
	}
	tmpl := "flowchart LR\nA[$nodeId]\nB[(b)]\nC{{c}}\nA-->B\nA-->C\nstyle C fill:#eee\n\n"

	first := Expand(tmpl, groups, nil)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Expand(tmpl, groups, nil))
	}
	assert.False(t, strings.HasSuffix(first, "\n"))
}
