package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlay(t *testing.T) {
	groups := Groups{
		"KT_TRG": nodes("a", "b", "c"),
		"KC_SNK": nil,
	}

	testCases := []struct {
		name string
		sel  SelectedNode
		want []string
	}{
		{
			name: "new pseudo-node has no styling",
			sel:  SelectedNode{Group: "KT_TRG", Index: IndexNew},
			want: nil,
		},
		{
			name: "concrete instance",
			sel:  SelectedNode{Group: "KT_TRG", Index: 1},
			want: []string{"style KT_TRG:1 fill:#00D1FF"},
		},
		{
			name: "unqualified group",
			sel:  SelectedNode{Group: "KT_TRG", Index: IndexAll},
			want: []string{"style KT_TRG fill:#00D1FF"},
		},
		{
			name: "placeholder instance",
			sel:  SelectedNode{Group: "KC_SNK", Index: IndexUnknown},
			want: []string{"style KC_SNK:? fill:#00D1FF"},
		},
		{
			name: "whole group styles every instance",
			sel:  SelectedNode{Group: "KT_TRG", Index: IndexNone},
			want: []string{
				"style KT_TRG:0 fill:#00D1FF",
				"style KT_TRG:1 fill:#00D1FF",
				"style KT_TRG:2 fill:#00D1FF",
			},
		},
		{
			name: "whole empty group styles placeholder",
			sel:  SelectedNode{Group: "KC_SNK", Index: IndexNone},
			want: []string{"style KC_SNK:? fill:#00D1FF"},
		},
		{
			name: "unknown group styles bare tag",
			sel:  SelectedNode{Group: "DB_SRC", Index: IndexNone},
			want: []string{"style DB_SRC fill:#00D1FF"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlay(tc.sel, groups, ""))
		})
	}
}

func TestOverlayColor(t *testing.T) {
	got := Overlay(SelectedNode{Group: "X", Index: IndexNone}, nil, "red")
	assert.Equal(t, []string{"style X fill:red"}, got)
}

func TestRender(t *testing.T) {
	groups := Groups{"KC_SNK": nodes("s1")}
	tmpl := "flowchart LR\nKC_SNK{{$nodeId}}"

	assert.Equal(t, "flowchart LR\nKC_SNK:0{{s1}}", Render(tmpl, groups, nil, Options{}))
	assert.Equal(t, "flowchart LR\nKC_SNK:0{{s1}}", Render(tmpl, groups, &SelectedNode{Group: "KC_SNK", Index: IndexNew}, Options{}))
	assert.Equal(t,
		"flowchart LR\nKC_SNK:0{{s1}}\nstyle KC_SNK:0 fill:#123",
		Render(tmpl, groups, &SelectedNode{Group: "KC_SNK", Index: 0}, Options{SelectedColor: "#123"}))
}
